package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/internal/services"
)

// TemplateHandler manages document templates.
type TemplateHandler struct {
	base
	templates *services.TemplateService
	docs      *services.DocumentService
}

func NewTemplateHandler(db *gorm.DB, log *zap.Logger, authz Authorizer, templates *services.TemplateService, docs *services.DocumentService) *TemplateHandler {
	return &TemplateHandler{base: newBase(db, log, authz), templates: templates, docs: docs}
}

// docType reads ?type=. An empty value means every type.
func (h *TemplateHandler) docType(w http.ResponseWriter, r *http.Request, required bool) (doctemplate.DocumentType, bool) {
	dt := doctemplate.DocumentType(r.URL.Query().Get("type"))
	if dt == "" && !required {
		return "", true
	}
	if !dt.Valid() {
		httpx.ValidationError(w, r, map[string]string{"type": "invalid_document_type"})
		return "", false
	}
	return dt, true
}

// List answers GET /api/templates?type=.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	dt, ok := h.docType(w, r, false)
	if !ok {
		return
	}
	list, err := h.templates.List(r.Context(), userID, dt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.DocumentTemplate{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

// Default answers GET /api/templates/default?type=.
func (h *TemplateHandler) Default(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	dt, ok := h.docType(w, r, true)
	if !ok {
		return
	}
	rec, err := h.templates.Default(r.Context(), userID, dt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

// Tokens answers GET /api/templates/tokens with the supported placeholders.
func (h *TemplateHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	tokens := doctemplate.KnownTokens()
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Placeholder()
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"tokens":         out,
		"document_types": doctemplate.DocumentTypes(),
	})
}

func (h *TemplateHandler) View(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in services.TemplateInput
	if !h.decode(w, r, &in) {
		return
	}
	rec, err := h.templates.Create(r.Context(), userID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in services.TemplateInput
	if !h.decode(w, r, &in) {
		return
	}
	updated, err := h.templates.Update(r.Context(), rec.UserID, rec.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.templates.Delete(r.Context(), rec.UserID, rec.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

type duplicateInput struct {
	Name string `json:"name"`
}

// Duplicate answers POST /api/templates/{id}/duplicate. The body is
// optional.
func (h *TemplateHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r, gate.ActionCreate)
	if !ok {
		return
	}
	var in duplicateInput
	if r.ContentLength != 0 && !h.decode(w, r, &in) {
		return
	}
	dup, err := h.templates.Duplicate(r.Context(), rec.UserID, rec.ID, in.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dup)
}

// SetDefault answers POST /api/templates/{id}/default.
func (h *TemplateHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r, gate.ActionSetDefault)
	if !ok {
		return
	}
	updated, err := h.templates.SetDefault(r.Context(), rec.UserID, rec.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Preview answers GET /api/templates/{id}/preview with the template
// rendered to HTML over sample data.
func (h *TemplateHandler) Preview(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	out, err := h.docs.TemplatePreview(r.Context(), rec.UserID, rec.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// PDF answers GET /api/templates/{id}/pdf with a sample document.
func (h *TemplateHandler) PDF(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r, gate.ActionExport)
	if !ok {
		return
	}
	doc, err := h.docs.TemplatePDF(r.Context(), rec.UserID, rec.ID)
	h.sendPDF(w, r, doc, err)
}

func (h *TemplateHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.DocumentTemplate, bool) {
	userID, ok := h.user(w, r)
	if !ok {
		return nil, false
	}
	id, ok := h.id(w, r)
	if !ok {
		return nil, false
	}
	rec, err := h.templates.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !h.authorize(w, r, action, "template", rec) {
		return nil, false
	}
	return rec, true
}
