// Package report turns AI-generated markdown into HTML that is safe to store
// and to embed in document templates.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Renderer converts markdown to sanitized HTML. The zero value is not
// usable; call NewRenderer.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer enables GitHub-flavoured markdown (tables, strikethrough,
// autolinks, task lists) and sanitizes with the UGC policy.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("table", "th", "td", "code", "pre")
	return &Renderer{md: md, policy: policy}
}

// HTML renders markdown. The model's raw output is not trusted: any HTML it
// contains goes through the sanitizer.
func (r *Renderer) HTML(markdown string) (string, error) {
	markdown = StripFence(markdown)
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return string(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// StripFence removes a ```markdown fence wrapping the whole answer, which
// models sometimes add despite instructions.
func StripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	first := strings.IndexByte(t, '\n')
	if first < 0 {
		return s
	}
	lang := strings.TrimSpace(t[3:first])
	if lang != "" && lang != "markdown" && lang != "md" {
		return s
	}
	return strings.TrimSpace(t[first+1 : len(t)-3])
}

// Title returns the text of the first level-one heading, or "".
func Title(markdown string) string {
	for _, line := range strings.Split(StripFence(markdown), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
