package doctemplate

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sectionIDs(sections []Section) []string {
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	return ids
}

func TestEnabledSections(t *testing.T) {
	tests := []struct {
		name     string
		sections []Section
		want     []string
	}{
		{
			name: "disabled dropped, sorted by order",
			sections: []Section{
				{ID: "a", Order: 2, IsEnabled: true},
				{ID: "b", Order: 1, IsEnabled: true},
				{ID: "c", Order: 1, IsEnabled: false},
			},
			want: []string{"b", "a"},
		},
		{
			name: "ties keep input order",
			sections: []Section{
				{ID: "x", Order: 5, IsEnabled: true},
				{ID: "y", Order: 1, IsEnabled: true},
				{ID: "z", Order: 5, IsEnabled: true},
				{ID: "w", Order: 1, IsEnabled: true},
			},
			want: []string{"y", "w", "x", "z"},
		},
		{
			name: "negative orders first",
			sections: []Section{
				{ID: "p", Order: 0, IsEnabled: true},
				{ID: "q", Order: -3, IsEnabled: true},
			},
			want: []string{"q", "p"},
		},
		{
			name:     "all disabled",
			sections: []Section{{ID: "a", IsEnabled: false}, {ID: "b", Order: -1}},
			want:     []string{},
		},
		{
			name: "empty",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sectionIDs(EnabledSections(tt.sections))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("EnabledSections() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnabledSections_DoesNotMutateInput(t *testing.T) {
	in := []Section{
		{ID: "a", Order: 2, IsEnabled: true},
		{ID: "b", Order: 1, IsEnabled: true},
	}
	_ = EnabledSections(in)
	if in[0].ID != "a" || in[1].ID != "b" {
		t.Fatalf("input reordered: %v", sectionIDs(in))
	}
}

func TestTemplate_WithSection(t *testing.T) {
	tpl := Template{Sections: []Section{
		{ID: "a", Order: 7, IsEnabled: true},
		{ID: "b", Order: 2, IsEnabled: true},
	}}
	got := tpl.WithSection(Section{ID: "body", IsEnabled: true})

	if len(tpl.Sections) != 2 {
		t.Fatalf("original template modified")
	}
	if diff := cmp.Diff([]string{"b", "a", "body"}, sectionIDs(got.Enabled())); diff != "" {
		t.Errorf("WithSection() order mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentType_Valid(t *testing.T) {
	for _, dt := range DocumentTypes() {
		if !dt.Valid() {
			t.Errorf("%s should be valid", dt)
		}
	}
	if DocumentType("receipt").Valid() {
		t.Error("receipt should not be valid")
	}
}

func TestRenderHTML(t *testing.T) {
	tpl := Template{
		Name:          "Monthly",
		CSS:           "h2 { color: navy; }",
		HeaderHTML:    "<strong>{{companyName}}</strong>",
		FooterHTML:    "Page {{currentPage}}/{{totalPages}}",
		CoverPageHTML: "<h1>{{reportTitle}}</h1>",
		Sections: []Section{
			{ID: "s2", Name: "Keywords", Content: "<p>for {{clientName}}</p>", Order: 2, IsEnabled: true},
			{ID: "s1", Name: "Summary", Content: "<p>summary</p>", Order: 1, IsEnabled: true},
			{ID: "s3", Name: "Hidden", Content: "<p>secret</p>", Order: 0, IsEnabled: false},
		},
	}
	out := RenderHTML(tpl, Data{CompanyName: "Acme", ReportTitle: "October", ClientName: "Bakery", CurrentPage: 3})

	for _, want := range []string{
		"<title>October</title>",
		"<style>\nh2 { color: navy; }\n</style>",
		`<header class="doc-header"><strong>Acme</strong></header>`,
		`<section class="doc-cover"><h1>October</h1></section>`,
		"<p>for Bakery</p>",
		`<footer class="doc-footer">Page /</footer>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderHTML() missing %q", want)
		}
	}
	if strings.Contains(out, "secret") {
		t.Error("disabled section rendered")
	}
	if strings.Index(out, "Summary") > strings.Index(out, "Keywords") {
		t.Error("sections out of order")
	}
}
