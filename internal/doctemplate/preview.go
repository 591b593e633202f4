package doctemplate

import (
	"html"
	"strings"
)

// RenderHTML builds a standalone HTML document from t for browser preview:
// template CSS, header, cover, enabled sections in order, then footer.
// Page tokens stay empty since an HTML page has no pagination.
func RenderHTML(t Template, data Data) string {
	data = data.WithPage(0, 0)

	title := data.ReportTitle
	if title == "" {
		title = t.Name
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	if t.CSS != "" {
		b.WriteString("<style>\n" + t.CSS + "\n</style>\n")
	}
	b.WriteString("</head>\n<body>\n")

	if t.HeaderHTML != "" {
		b.WriteString(`<header class="doc-header">` + Substitute(t.HeaderHTML, data) + "</header>\n")
	}
	if t.CoverPageHTML != "" {
		b.WriteString(`<section class="doc-cover">` + Substitute(t.CoverPageHTML, data) + "</section>\n")
	}
	for _, s := range t.Enabled() {
		b.WriteString(`<section class="doc-section" data-section-id="` + html.EscapeString(s.ID) + `">`)
		b.WriteString("<h2>" + html.EscapeString(s.Name) + "</h2>")
		b.WriteString(Substitute(s.Content, data))
		b.WriteString("</section>\n")
	}
	if t.FooterHTML != "" {
		b.WriteString(`<footer class="doc-footer">` + Substitute(t.FooterHTML, data) + "</footer>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}
