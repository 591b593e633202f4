// Package pdf turns a document template into a paginated PDF: a cover page,
// one page per enabled section, with the header and footer stamped on every
// page once the total page count is known.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/diewo77/seo-backoffice/internal/doctemplate"
)

// Options controls page geometry and typography.
type Options struct {
	PageSize     string
	Orientation  string
	MarginLeft   float64
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	FontFamily   string
	FontSize     float64
	Compress     bool
	Creator      string
}

// DefaultOptions is A4 portrait, Helvetica 11pt, compressed streams.
func DefaultOptions() Options {
	return Options{
		PageSize:     "A4",
		Orientation:  "P",
		MarginLeft:   20,
		MarginTop:    25,
		MarginRight:  20,
		MarginBottom: 22,
		FontFamily:   "Helvetica",
		FontSize:     11,
		Compress:     true,
		Creator:      "seo-backoffice",
	}
}

// PageKind distinguishes the cover from section pages in a Plan.
type PageKind string

const (
	CoverPage   PageKind = "cover"
	SectionPage PageKind = "section"
)

// PlannedPage is one logical page of the output, before pagination. A long
// section may flow onto several physical pages.
type PlannedPage struct {
	Kind      PageKind
	SectionID string
	Title     string
}

// Plan returns the page structure Assemble produces for t: the cover, then
// each enabled section in order.
func Plan(t doctemplate.Template) []PlannedPage {
	enabled := t.Enabled()
	pages := make([]PlannedPage, 0, len(enabled)+1)
	pages = append(pages, PlannedPage{Kind: CoverPage})
	for _, s := range enabled {
		pages = append(pages, PlannedPage{Kind: SectionPage, SectionID: s.ID, Title: s.Name})
	}
	return pages
}

// ErrEmptyOutput is returned when the generator produced no bytes.
var ErrEmptyOutput = errors.New("pdf: empty output")

// Assembler renders templates into PDF bytes. It is safe for concurrent use;
// each call builds its own document.
type Assembler struct {
	opts Options
}

// NewAssembler fills zero fields of opts from DefaultOptions.
func NewAssembler(opts Options) *Assembler {
	def := DefaultOptions()
	if opts.PageSize == "" {
		opts.PageSize = def.PageSize
	}
	if opts.Orientation == "" {
		opts.Orientation = def.Orientation
	}
	if opts.MarginLeft == 0 && opts.MarginTop == 0 && opts.MarginRight == 0 && opts.MarginBottom == 0 {
		opts.MarginLeft, opts.MarginTop, opts.MarginRight, opts.MarginBottom =
			def.MarginLeft, def.MarginTop, def.MarginRight, def.MarginBottom
	}
	if opts.FontFamily == "" {
		opts.FontFamily = def.FontFamily
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Creator == "" {
		opts.Creator = def.Creator
	}
	return &Assembler{opts: opts}
}

// Render assembles t with the default options.
func Render(t doctemplate.Template, data doctemplate.Data) ([]byte, error) {
	return NewAssembler(DefaultOptions()).Assemble(t, data)
}

// Assemble produces the PDF for t. Placeholders are substituted per page;
// currentPage and totalPages are only meaningful in the header and footer.
func (a *Assembler) Assemble(t doctemplate.Template, data doctemplate.Data) ([]byte, error) {
	o := a.opts
	doc := gofpdf.New(o.Orientation, "mm", o.PageSize, "")
	if doc.Err() {
		return nil, fmt.Errorf("pdf: %w", doc.Error())
	}
	doc.SetCompression(o.Compress)
	doc.SetMargins(o.MarginLeft, o.MarginTop, o.MarginRight)
	doc.SetAutoPageBreak(true, o.MarginBottom)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	title := data.ReportTitle
	if title == "" {
		title = t.Name
	}
	doc.SetTitle(title, true)
	doc.SetAuthor(data.CompanyName, true)
	doc.SetCreator(o.Creator, true)

	// Body pages carry no page numbers yet.
	body := data.WithPage(0, 0)
	a.cover(doc, tr, t, body, title)
	for _, s := range t.Enabled() {
		a.section(doc, tr, s, body)
	}

	total := doc.PageCount()
	doc.SetAutoPageBreak(false, 0)
	for p := 1; p <= total; p++ {
		doc.SetPage(p)
		a.stamp(doc, tr, t, data.WithPage(p, total))
	}

	if doc.Err() {
		return nil, fmt.Errorf("pdf: %w", doc.Error())
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: output: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyOutput
	}
	return buf.Bytes(), nil
}

func (a *Assembler) contentWidth(doc *gofpdf.Fpdf) float64 {
	w, _ := doc.GetPageSize()
	return w - a.opts.MarginLeft - a.opts.MarginRight
}

func (a *Assembler) cover(doc *gofpdf.Fpdf, tr func(string) string, t doctemplate.Template, data doctemplate.Data, title string) {
	o := a.opts
	doc.AddPage()
	w := a.contentWidth(doc)
	_, h := doc.GetPageSize()

	doc.SetY(h / 3)
	doc.SetFont(o.FontFamily, "B", 26)
	doc.MultiCell(w, 11, tr(title), "", "C", false)

	doc.Ln(6)
	doc.SetFont(o.FontFamily, "", 15)
	for _, line := range []string{data.ClientName, data.ReportDate} {
		if line != "" {
			doc.MultiCell(w, 8, tr(line), "", "C", false)
		}
	}

	if data.CompanyName != "" {
		doc.Ln(10)
		doc.SetFont(o.FontFamily, "I", 12)
		doc.MultiCell(w, 6, tr(data.CompanyName), "", "C", false)
	}

	if text := PlainText(doctemplate.Substitute(t.CoverPageHTML, data)); text != "" {
		doc.Ln(10)
		doc.SetFont(o.FontFamily, "", o.FontSize)
		doc.MultiCell(w, o.FontSize*0.5, tr(text), "", "C", false)
	}
}

func (a *Assembler) section(doc *gofpdf.Fpdf, tr func(string) string, s doctemplate.Section, data doctemplate.Data) {
	o := a.opts
	doc.AddPage()
	w := a.contentWidth(doc)

	doc.SetFont(o.FontFamily, "B", 16)
	doc.MultiCell(w, 8, tr(s.Name), "", "L", false)
	doc.Ln(3)

	if text := PlainText(doctemplate.Substitute(s.Content, data)); text != "" {
		doc.SetFont(o.FontFamily, "", o.FontSize)
		doc.MultiCell(w, o.FontSize*0.5, tr(text), "", "L", false)
	}
}

// stamp writes the header and footer onto the current page. The two use
// different font styles so gofpdf emits a font selection on every revisited
// page stream.
func (a *Assembler) stamp(doc *gofpdf.Fpdf, tr func(string) string, t doctemplate.Template, data doctemplate.Data) {
	o := a.opts
	w := a.contentWidth(doc)
	_, h := doc.GetPageSize()

	doc.SetTextColor(110, 110, 110)

	doc.SetFont(o.FontFamily, "", 9)
	if text := oneLine(PlainText(doctemplate.Substitute(t.HeaderHTML, data))); text != "" {
		doc.SetXY(o.MarginLeft, o.MarginTop/2-2)
		doc.CellFormat(w, 5, tr(text), "", 0, "L", false, 0, "")
	}

	doc.SetFont(o.FontFamily, "I", 8)
	if text := oneLine(PlainText(doctemplate.Substitute(t.FooterHTML, data))); text != "" {
		doc.SetXY(o.MarginLeft, h-o.MarginBottom/2-2)
		doc.CellFormat(w, 5, tr(text), "", 0, "C", false, 0, "")
	}

	doc.SetTextColor(0, 0, 0)
}

func oneLine(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " | ")
}
