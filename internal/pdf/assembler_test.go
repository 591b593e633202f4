package pdf

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/seo-backoffice/internal/doctemplate"
)

func sampleTemplate() doctemplate.Template {
	return doctemplate.Template{
		Name:          "Monthly",
		DocumentType:  doctemplate.SEOReport,
		HeaderHTML:    "<strong>{{companyName}}</strong>",
		FooterHTML:    "<span>Page {{currentPage}} of {{totalPages}}</span>",
		CoverPageHTML: "<p>Prepared for {{clientName}}</p>",
		Sections: []doctemplate.Section{
			{ID: "kw", Name: "KeywordsSection", Content: "<p>Top keywords for {{clientName}}</p>", Order: 2, IsEnabled: true},
			{ID: "sum", Name: "SummarySection", Content: "<p>Summary</p>", Order: 1, IsEnabled: true},
			{ID: "hid", Name: "HiddenSection", Content: "<p>secret</p>", Order: 0, IsEnabled: false},
		},
	}
}

func uncompressed() *Assembler {
	opts := DefaultOptions()
	opts.Compress = false
	return NewAssembler(opts)
}

func TestPlan(t *testing.T) {
	got := Plan(sampleTemplate())
	want := []PlannedPage{
		{Kind: CoverPage},
		{Kind: SectionPage, SectionID: "sum", Title: "SummarySection"},
		{Kind: SectionPage, SectionID: "kw", Title: "KeywordsSection"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble(t *testing.T) {
	out, err := uncompressed().Assemble(sampleTemplate(), doctemplate.Data{
		CompanyName: "Acme",
		ClientName:  "Bakery",
		ReportTitle: "October",
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "missing PDF header")

	count := regexp.MustCompile(`/Count (\d+)`).FindSubmatch(out)
	require.NotNil(t, count, "page tree count not found")
	assert.Equal(t, "3", string(count[1]))

	assert.NotContains(t, string(out), "HiddenSection")
	assert.NotContains(t, string(out), "secret")

	sum := bytes.Index(out, []byte("SummarySection"))
	kw := bytes.Index(out, []byte("KeywordsSection"))
	require.True(t, sum > 0 && kw > 0, "section headings missing")
	assert.Less(t, sum, kw, "sections out of order")

	for _, want := range []string{"Page 1 of 3", "Page 2 of 3", "Page 3 of 3", "Top keywords for Bakery", "Prepared for Bakery"} {
		assert.Contains(t, string(out), want)
	}
}

func TestAssemble_NoSections(t *testing.T) {
	tpl := doctemplate.Template{Name: "Bare", FooterHTML: "{{currentPage}}/{{totalPages}}"}
	out, err := uncompressed().Assemble(tpl, doctemplate.Data{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "1/1")
}

func TestAssemble_BadPageSize(t *testing.T) {
	opts := DefaultOptions()
	opts.PageSize = "napkin"
	_, err := NewAssembler(opts).Assemble(sampleTemplate(), doctemplate.Data{})
	assert.Error(t, err)
}

func TestRender_Compressed(t *testing.T) {
	out, err := Render(sampleTemplate(), doctemplate.Data{ReportTitle: "x"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
