package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/ai"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/internal/services"
)

// ReportHandler serves AI generated SEO reports and the raw
// generate-report function.
type ReportHandler struct {
	base
	reports *services.ReportService
	fn      *ai.ReportFunction
}

func NewReportHandler(db *gorm.DB, log *zap.Logger, authz Authorizer, reports *services.ReportService, fn *ai.ReportFunction) *ReportHandler {
	return &ReportHandler{base: newBase(db, log, authz), reports: reports, fn: fn}
}

// GenerateFunction answers POST /api/functions/generate-report. The body is
// {auditData, templateType}; the answer {content, model, prompt} or
// {error}.
func (h *ReportHandler) GenerateFunction(w http.ResponseWriter, r *http.Request) {
	var req ai.Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSON(w, http.StatusBadRequest, ai.ErrorResponse{Error: err.Error()})
		return
	}
	resp, err := h.fn.Run(r.Context(), req)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, resp)
	case errors.Is(err, ai.ErrMissingTemplateType):
		httpx.JSON(w, http.StatusBadRequest, ai.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ai.ErrUnavailable):
		httpx.JSON(w, http.StatusServiceUnavailable, ai.ErrorResponse{Error: err.Error()})
	default:
		h.Log.Error("generate-report failed", zap.String("template_type", req.TemplateType), zap.Error(err))
		httpx.JSON(w, http.StatusInternalServerError, ai.ErrorResponse{Error: err.Error()})
	}
}

// List answers GET /api/reports?client_id=.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var clientID uint
	if raw := r.URL.Query().Get("client_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httpx.Error(w, r, http.StatusBadRequest, "invalid_id", nil)
			return
		}
		clientID = uint(id)
	}
	list, err := h.reports.List(r.Context(), userID, clientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.Report{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *ReportHandler) View(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

// Create answers POST /api/reports. When generation fails after the draft
// was stored, the answer carries the draft id so it can be regenerated.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in services.ReportInput
	if !h.decode(w, r, &in) {
		return
	}
	rep, err := h.reports.Create(r.Context(), userID, in)
	if err != nil {
		if rep == nil {
			h.fail(w, r, err)
			return
		}
		h.generationFailed(w, r, rep.ID, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rep)
}

// Generate answers POST /api/reports/{id}/generate.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r, gate.ActionGenerate)
	if !ok {
		return
	}
	updated, err := h.reports.Generate(r.Context(), rep.UserID, rep.ID)
	if err != nil {
		h.generationFailed(w, r, rep.ID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *ReportHandler) generationFailed(w http.ResponseWriter, r *http.Request, reportID uint, err error) {
	if isDomainError(err) || errors.Is(err, ai.ErrUnavailable) {
		h.fail(w, r, err)
		return
	}
	h.Log.Error("report generation failed", zap.Uint("report_id", reportID), zap.Error(err))
	httpx.Error(w, r, http.StatusBadGateway, "report_generation_failed", map[string]uint{"report_id": reportID})
}

// Publish answers POST /api/reports/{id}/publish.
func (h *ReportHandler) Publish(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r, gate.ActionPublish)
	if !ok {
		return
	}
	updated, err := h.reports.Publish(r.Context(), rep.UserID, rep.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.reports.Delete(r.Context(), rep.UserID, rep.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// PDF answers GET /api/reports/{id}/pdf?template=. Without a template id
// the account's default seo-report template is used.
func (h *ReportHandler) PDF(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r, gate.ActionExport)
	if !ok {
		return
	}
	var templateID uint
	if raw := r.URL.Query().Get("template"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			httpx.Error(w, r, http.StatusBadRequest, "invalid_id", nil)
			return
		}
		templateID = uint(id)
	}
	doc, err := h.reports.PDF(r.Context(), rep.UserID, rep.ID, templateID)
	h.sendPDF(w, r, doc, err)
}

func (h *ReportHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Report, bool) {
	userID, ok := h.user(w, r)
	if !ok {
		return nil, false
	}
	id, ok := h.id(w, r)
	if !ok {
		return nil, false
	}
	rep, err := h.reports.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !h.authorize(w, r, action, "report", rep) {
		return nil, false
	}
	return rep, true
}
