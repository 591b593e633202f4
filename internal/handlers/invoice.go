package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/internal/services"
)

type InvoiceHandler struct {
	base
	invoices *services.InvoiceService
	docs     *services.DocumentService
}

func NewInvoiceHandler(db *gorm.DB, log *zap.Logger, authz Authorizer, invoices *services.InvoiceService, docs *services.DocumentService) *InvoiceHandler {
	return &InvoiceHandler{base: newBase(db, log, authz), invoices: invoices, docs: docs}
}

// invoiceView adds the computed totals to an invoice.
type invoiceView struct {
	*models.Invoice
	TotalHT      float64                `json:"total_ht"`
	TotalVAT     float64                `json:"total_vat"`
	TotalTTC     float64                `json:"total_ttc"`
	NextStatuses []models.InvoiceStatus `json:"next_statuses"`
}

func (h *InvoiceHandler) view(inv *models.Invoice) invoiceView {
	ht, tva, ttc := h.invoices.ComputeTotals(inv)
	return invoiceView{Invoice: inv, TotalHT: ht, TotalVAT: tva, TotalTTC: ttc, NextStatuses: inv.NextStatuses()}
}

// List answers GET /api/invoices?status=.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	status := models.InvoiceStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		httpx.ValidationError(w, r, map[string]string{"status": "not_allowed"})
		return
	}
	list, err := h.invoices.List(r.Context(), userID, status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]invoiceView, len(list))
	for i := range list {
		out[i] = h.view(&list[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Revenue answers GET /api/invoices/revenue with the paid TTC total.
func (h *InvoiceHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	total, err := h.invoices.GetRevenue(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]float64{"revenue": total})
}

func (h *InvoiceHandler) View(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(inv))
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in services.InvoiceInput
	if !h.decode(w, r, &in) {
		return
	}
	inv, err := h.invoices.Create(r.Context(), userID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.view(inv))
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in services.InvoiceInput
	if !h.decode(w, r, &in) {
		return
	}
	updated, err := h.invoices.Update(r.Context(), inv.UserID, inv.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(updated))
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.invoices.Delete(r.Context(), inv.UserID, inv.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Finalize answers POST /api/invoices/{id}/finalize.
func (h *InvoiceHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, gate.ActionFinalize, models.InvoiceStatusFinal)
}

// Status answers POST /api/invoices/{id}/status with {"status": "..."}.
func (h *InvoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if !h.decode(w, r, &in) {
		return
	}
	status := models.InvoiceStatus(in.Status)
	if !status.Valid() {
		httpx.ValidationError(w, r, map[string]string{"status": "not_allowed"})
		return
	}
	h.transition(w, r, gate.ActionTransition, status)
}

func (h *InvoiceHandler) transition(w http.ResponseWriter, r *http.Request, action gate.Action, status models.InvoiceStatus) {
	inv, ok := h.load(w, r, action)
	if !ok {
		return
	}
	updated, err := h.invoices.Transition(r.Context(), inv.UserID, inv.ID, status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(updated))
}

// PDF answers GET /api/invoices/{id}/pdf.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r, gate.ActionExport)
	if !ok {
		return
	}
	doc, err := h.docs.InvoicePDF(r.Context(), inv.UserID, inv.ID)
	h.sendPDF(w, r, doc, err)
}

func (h *InvoiceHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Invoice, bool) {
	userID, ok := h.user(w, r)
	if !ok {
		return nil, false
	}
	id, ok := h.id(w, r)
	if !ok {
		return nil, false
	}
	inv, err := h.invoices.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !h.authorize(w, r, action, "invoice", inv) {
		return nil, false
	}
	return inv, true
}
