// Package doctemplate holds the document template model shared by the
// template store, the HTML preview and the PDF assembler: ordered,
// toggleable sections of HTML with {{token}} placeholders.
package doctemplate

import (
	"cmp"
	"slices"
)

// DocumentType is the kind of document a template lays out.
type DocumentType string

const (
	SEOReport DocumentType = "seo-report"
	Proposal  DocumentType = "proposal"
	Invoice   DocumentType = "invoice"
	Contract  DocumentType = "contract"
)

// DocumentTypes returns every supported document type.
func DocumentTypes() []DocumentType {
	return []DocumentType{SEOReport, Proposal, Invoice, Contract}
}

// Valid reports whether t is one of the supported document types.
func (t DocumentType) Valid() bool {
	return slices.Contains(DocumentTypes(), t)
}

// Section is an independently toggleable content block within a template.
type Section struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Content   string `json:"content" yaml:"content"`
	IsEnabled bool   `json:"is_enabled" yaml:"enabled"`
	Order     int    `json:"order" yaml:"order"`
}

// Template is a named layout definition for one document type.
type Template struct {
	Name          string       `json:"name" yaml:"name"`
	DocumentType  DocumentType `json:"document_type" yaml:"document_type"`
	Sections      []Section    `json:"sections" yaml:"sections"`
	HeaderHTML    string       `json:"header_html" yaml:"header_html"`
	FooterHTML    string       `json:"footer_html" yaml:"footer_html"`
	CoverPageHTML string       `json:"cover_page_html" yaml:"cover_page_html"`
	CSS           string       `json:"css" yaml:"css"`
}

// EnabledSections returns the enabled sections sorted by Order ascending.
// The sort is stable: sections sharing an Order keep their input order.
// The input slice is not modified.
func EnabledSections(sections []Section) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.IsEnabled {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b Section) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// Enabled is shorthand for EnabledSections(t.Sections).
func (t Template) Enabled() []Section {
	return EnabledSections(t.Sections)
}

// WithSection returns a copy of t with s appended after every existing
// section, whatever their Order.
func (t Template) WithSection(s Section) Template {
	out := t
	out.Sections = slices.Clone(t.Sections)
	last := 0
	for _, existing := range out.Sections {
		if existing.Order >= last {
			last = existing.Order + 1
		}
	}
	s.Order = last
	out.Sections = append(out.Sections, s)
	return out
}
