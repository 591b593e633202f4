package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_HTML(t *testing.T) {
	r := NewRenderer()

	out, err := r.HTML("# Audit\n\nSome **bold** text.\n\n| Page | Score |\n|---|---|\n| / | 91 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, ">Audit</h1>")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>91</td>")
}

func TestRenderer_Sanitizes(t *testing.T) {
	out, err := NewRenderer().HTML("Hello <script>alert(1)</script>\n\n[x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"markdown fence", "```markdown\n# T\n\nbody\n```", "# T\n\nbody"},
		{"bare fence", "```\n# T\n```", "# T"},
		{"code block kept", "```go\nfmt.Println()\n```", "```go\nfmt.Println()\n```"},
		{"no fence", "# T", "# T"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFence(tt.in))
		})
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Monthly report", Title("intro\n# Monthly report\n## Traffic"))
	assert.Equal(t, "", Title("## only h2"))
}
