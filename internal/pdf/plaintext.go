package pdf

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText strips markup from an HTML fragment. Block elements become line
// breaks, list items are prefixed with "- ", script and style content is
// dropped and runs of whitespace collapse to a single space.
func PlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return normalizeLines(collapseSpace(fragment))
	}
	var sb strings.Builder
	for _, n := range nodes {
		writeText(n, &sb, 0)
	}
	return normalizeLines(sb.String())
}

func writeText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 100 {
		return
	}
	switch n.Type {
	case html.TextNode:
		sb.WriteString(collapseSpace(n.Data))
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template", "head", "title", "svg":
			return
		case "br":
			sb.WriteString("\n")
			return
		case "img":
			if alt := attr(n, "alt"); alt != "" {
				sb.WriteString(alt)
			}
			return
		case "li":
			sb.WriteString("\n- ")
		default:
			if isBlock(n.Data) {
				sb.WriteString("\n")
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, sb, depth+1)
	}

	if n.Type == html.ElementNode {
		switch {
		case n.Data == "td" || n.Data == "th":
			sb.WriteString("  ")
		case isBlock(n.Data):
			sb.WriteString("\n")
		}
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "header", "footer", "main", "aside", "nav",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "table", "thead", "tbody", "tr",
		"blockquote", "pre", "hr", "dl", "dt", "dd", "figure", "figcaption", "address":
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// normalizeLines trims every line, keeps at most one blank line between
// paragraphs and drops leading and trailing blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(collapseSpace(line))
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
