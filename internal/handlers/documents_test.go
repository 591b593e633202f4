package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/seo-backoffice/internal/ai"
	"github.com/diewo77/seo-backoffice/internal/db"
	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/models"
)

func templateBody(name string, isDefault bool) map[string]any {
	return map[string]any{
		"name":          name,
		"document_type": "seo-report",
		"is_default":    isDefault,
		"header_html":   "<p>{{companyName}}</p>",
		"sections": []map[string]any{
			{"name": "Intro", "content": "<p>Hello {{clientName}}</p>", "is_enabled": true, "order": 1},
		},
	}
}

func TestTemplateHandler_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	uid := f.user.ID

	rr := f.do(t, uid, http.MethodPost, "/api/templates", templateBody("A", true))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	a := decodeBody[models.DocumentTemplate](t, rr)
	rr = f.do(t, uid, http.MethodPost, "/api/templates", templateBody("B", false))
	require.Equal(t, http.StatusCreated, rr.Code)
	b := decodeBody[models.DocumentTemplate](t, rr)

	rr = f.do(t, uid, http.MethodPost, "/api/templates/"+itoa(b.ID)+"/default", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeBody[models.DocumentTemplate](t, rr).IsDefault)

	rr = f.do(t, uid, http.MethodGet, "/api/templates/default?type=seo-report", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, b.ID, decodeBody[models.DocumentTemplate](t, rr).ID)

	rr = f.do(t, uid, http.MethodGet, "/api/templates?type=seo-report", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]models.DocumentTemplate](t, rr)
	require.Len(t, list, 2)
	defaults := 0
	for _, tpl := range list {
		if tpl.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	rr = f.do(t, uid, http.MethodDelete, "/api/templates/"+itoa(b.ID), nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, uid, http.MethodPost, "/api/templates/"+itoa(a.ID)+"/duplicate", map[string]string{"name": "A bis"})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "A bis", decodeBody[models.DocumentTemplate](t, rr).Name)

	rr = f.do(t, uid, http.MethodDelete, "/api/templates/"+itoa(a.ID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestTemplateHandler_Errors(t *testing.T) {
	f := newFixture(t, nil)
	uid := f.user.ID

	rr := f.do(t, uid, http.MethodGet, "/api/templates?type=memo", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = f.do(t, uid, http.MethodGet, "/api/templates/default?type=contract", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "template_not_found")

	body := templateBody("Bad", false)
	body["footer_html"] = "{{agencyPhone}}"
	rr = f.do(t, uid, http.MethodPost, "/api/templates", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = f.do(t, uid, http.MethodPost, "/api/templates", templateBody("Mine", false))
	require.Equal(t, http.StatusCreated, rr.Code)
	mine := decodeBody[models.DocumentTemplate](t, rr)
	other := createUser(t, f.conn, "other@agency.fr")
	rr = f.do(t, other.ID, http.MethodPost, "/api/templates/"+itoa(mine.ID)+"/default", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTemplateHandler_PreviewAndPDF(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.conn.Create(&models.CompanySettings{UserID: f.user.ID, Name: "Acme SEO"}).Error)

	rr := f.do(t, f.user.ID, http.MethodPost, "/api/templates", templateBody("Preview", false))
	require.Equal(t, http.StatusCreated, rr.Code)
	tpl := decodeBody[models.DocumentTemplate](t, rr)

	rr = f.do(t, f.user.ID, http.MethodGet, "/api/templates/"+itoa(tpl.ID)+"/preview", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rr.Body.String(), "<p>Acme SEO</p>")

	rr = f.do(t, f.user.ID, http.MethodGet, "/api/templates/"+itoa(tpl.ID)+"/pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "template-"+itoa(tpl.ID)+".pdf")
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	rr = f.do(t, f.user.ID, http.MethodGet, "/api/templates/tokens", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), doctemplate.TokenCompanyName.Placeholder())
}

func TestReportHandler_GenerateFunction(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, f.user.ID, http.MethodPost, "/api/functions/generate-report", map[string]any{
		"auditData":    map[string]any{"traffic": 1200},
		"templateType": "monthly",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[ai.Response](t, rr)
	assert.Equal(t, f.gen.text, resp.Content)
	assert.Equal(t, "stub-model", resp.Model)
	assert.Contains(t, resp.Prompt, `"traffic": 1200`)

	rr = f.do(t, f.user.ID, http.MethodPost, "/api/functions/generate-report", map[string]any{"auditData": map[string]any{}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NotEmpty(t, decodeBody[ai.ErrorResponse](t, rr).Error)

	f.gen.err = errors.New("quota exceeded")
	rr = f.do(t, f.user.ID, http.MethodPost, "/api/functions/generate-report", map[string]any{"templateType": "seo-audit"})
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, decodeBody[ai.ErrorResponse](t, rr).Error, "quota exceeded")
}

func TestReportHandler_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, db.SeedTemplates(f.conn, f.user.ID))
	c := f.client(t, "Bakery")

	rr := f.do(t, f.user.ID, http.MethodPost, "/api/reports", map[string]any{"client_id": c.ID, "type": "seo-audit"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rep := decodeBody[models.Report](t, rr)
	assert.Equal(t, models.ReportStatusGenerated, rep.Status)
	assert.Equal(t, "Audit", rep.Title)
	path := "/api/reports/" + itoa(rep.ID)

	rr = f.do(t, f.user.ID, http.MethodGet, path+"/pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	rr = f.do(t, f.user.ID, http.MethodGet, path+"/pdf?template=9999", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, f.user.ID, http.MethodPost, path+"/publish", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, f.user.ID, http.MethodPost, path+"/generate", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = f.do(t, f.user.ID, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, f.user.ID, http.MethodGet, "/api/reports?client_id="+itoa(c.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]models.Report](t, rr), 1)
}

func TestReportHandler_GenerationFailure(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t, "Bakery")
	f.gen.err = errors.New("upstream down")

	rr := f.do(t, f.user.ID, http.MethodPost, "/api/reports", map[string]any{"client_id": c.ID, "type": "monthly"})
	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "report_generation_failed")

	var rep models.Report
	require.NoError(t, f.conn.Where("user_id = ?", f.user.ID).First(&rep).Error)
	assert.Equal(t, models.ReportStatusDraft, rep.Status)

	rr = f.do(t, f.user.ID, http.MethodGet, "/api/reports/"+itoa(rep.ID)+"/pdf", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "report_not_generated")

	rr = f.do(t, f.user.ID, http.MethodPost, "/api/reports", map[string]any{"client_id": c.ID, "type": "weekly"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestInvoiceHandler_Flow(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t, "Bakery")
	issue := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	body := map[string]any{
		"client_id":  c.ID,
		"issue_date": issue,
		"items":      []map[string]any{{"description": "Audit SEO", "quantity": 1, "unit_price": 900, "vat_rate": 0.2}},
	}

	rr := f.do(t, f.user.ID, http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	inv := decodeBody[invoiceView](t, rr)
	assert.Equal(t, "INV-2026-0001", inv.Number)
	assert.InDelta(t, 1080.0, inv.TotalTTC, 0.001)
	path := "/api/invoices/" + itoa(inv.ID)

	rr = f.do(t, f.user.ID, http.MethodPost, path+"/finalize", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.InvoiceStatusFinal, decodeBody[invoiceView](t, rr).Status)

	rr = f.do(t, f.user.ID, http.MethodPut, path, body)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_editable")

	rr = f.do(t, f.user.ID, http.MethodPost, path+"/status", map[string]string{"status": "draft"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = f.do(t, f.user.ID, http.MethodPost, path+"/status", map[string]string{"status": "paid"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, f.user.ID, http.MethodGet, "/api/invoices/revenue", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.InDelta(t, 1080.0, decodeBody[map[string]float64](t, rr)["revenue"], 0.001)

	rr = f.do(t, f.user.ID, http.MethodGet, path+"/pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "INV-2026-0001.pdf")
}

func TestContractAndProposalHandlers(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t, "Bakery")
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	rr := f.do(t, f.user.ID, http.MethodPost, "/api/contracts", map[string]any{
		"client_id": c.ID, "title": "Suivi SEO", "start_date": start, "monthly_fee": 450,
		"body": "<p>Entre {{companyName}} et {{clientName}}</p>",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	contract := decodeBody[models.Contract](t, rr)
	cpath := "/api/contracts/" + itoa(contract.ID)

	rr = f.do(t, f.user.ID, http.MethodPost, cpath+"/status", map[string]string{"status": "signed"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = f.do(t, f.user.ID, http.MethodPost, cpath+"/status", map[string]string{"status": "sent"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, decodeBody[models.Contract](t, rr).SentAt)
	rr = f.do(t, f.user.ID, http.MethodPut, cpath, map[string]any{"client_id": c.ID, "title": "x", "start_date": start})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, f.user.ID, http.MethodGet, cpath+"/pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "contract-"+itoa(contract.ID)+".pdf")

	rr = f.do(t, f.user.ID, http.MethodPost, "/api/contracts", map[string]any{
		"client_id": c.ID, "title": "Bad", "start_date": start, "body": "{{unknownThing}}",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rr = f.do(t, f.user.ID, http.MethodPost, "/api/proposals", map[string]any{
		"client_id": c.ID, "title": "Refonte", "amount": 3000, "valid_until": past,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	proposal := decodeBody[models.Proposal](t, rr)
	ppath := "/api/proposals/" + itoa(proposal.ID)

	rr = f.do(t, f.user.ID, http.MethodGet, ppath, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeBody[proposalView](t, rr).Expired)

	rr = f.do(t, f.user.ID, http.MethodPost, ppath+"/status", map[string]string{"status": "sent"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, f.user.ID, http.MethodPost, ppath+"/status", map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = f.do(t, f.user.ID, http.MethodGet, ppath+"/pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestTicketHandler(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, f.user.ID, http.MethodPost, "/api/tickets", map[string]any{"subject": "Slow site"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	low := decodeBody[models.Ticket](t, rr)
	assert.Equal(t, models.TicketPriorityNormal, low.Priority)

	rr = f.do(t, f.user.ID, http.MethodPost, "/api/tickets", map[string]any{"subject": "Site down", "priority": "urgent"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do(t, f.user.ID, http.MethodPost, "/api/tickets", map[string]any{"subject": "x", "priority": "whenever"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = f.do(t, f.user.ID, http.MethodGet, "/api/tickets", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]models.Ticket](t, rr)
	require.Len(t, list, 2)
	assert.Equal(t, "Site down", list[0].Subject)

	path := "/api/tickets/" + itoa(low.ID) + "/status"
	rr = f.do(t, f.user.ID, http.MethodPost, path, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = f.do(t, f.user.ID, http.MethodPost, path, map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, f.user.ID, http.MethodPost, path, map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, decodeBody[models.Ticket](t, rr).ResolvedAt)
}
