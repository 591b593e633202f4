package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/internal/services"
	"github.com/diewo77/seo-backoffice/validation"
)

type ContractHandler struct {
	base
	docs *services.DocumentService
	now  func() time.Time
}

func NewContractHandler(db *gorm.DB, log *zap.Logger, authz Authorizer, docs *services.DocumentService) *ContractHandler {
	return &ContractHandler{base: newBase(db, log, authz), docs: docs, now: time.Now}
}

// ContractInput is the writable part of a contract. Body may hold
// template placeholders.
type ContractInput struct {
	ClientID   uint       `json:"client_id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	MonthlyFee float64    `json:"monthly_fee"`
}

func (in *ContractInput) violations() validation.Violations {
	v := validation.Violations{}
	in.Title = strings.TrimSpace(in.Title)
	validation.RequiredID("client_id", in.ClientID, v)
	validation.Required("title", in.Title, v)
	validation.MaxLen("title", in.Title, 255, v)
	if in.StartDate.IsZero() {
		v.Add("start_date", "required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		v.Add("end_date", "out_of_range")
	}
	validation.NonNegativeFloat("monthly_fee", in.MonthlyFee, v)
	if _, unknown := doctemplate.Tokens(in.Body); len(unknown) > 0 {
		v.Add("body", "unknown_token")
	}
	return v
}

func (in *ContractInput) apply(c *models.Contract) {
	c.ClientID = in.ClientID
	c.Title = in.Title
	c.Body = in.Body
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	c.MonthlyFee = in.MonthlyFee
}

// List answers GET /api/contracts?client_id=&status=.
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	q := h.DB.WithContext(r.Context()).Preload("Client").Where("user_id = ?", userID)
	if cid := r.URL.Query().Get("client_id"); cid != "" {
		q = q.Where("client_id = ?", cid)
	}
	if st := r.URL.Query().Get("status"); st != "" {
		q = q.Where("status = ?", st)
	}
	out := []models.Contract{}
	if err := q.Order("start_date DESC, id DESC").Find(&out).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *ContractHandler) View(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in ContractInput
	if !h.decode(w, r, &in) || !h.check(w, r, userID, &in) {
		return
	}
	c := models.Contract{UserID: userID, Status: models.ContractStatusDraft}
	in.apply(&c)
	if err := h.DB.WithContext(r.Context()).Create(&c).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

// Update rewrites a draft contract.
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	if c.Status != models.ContractStatusDraft {
		h.fail(w, r, services.ErrNotEditable)
		return
	}
	var in ContractInput
	if !h.decode(w, r, &in) || !h.check(w, r, c.UserID, &in) {
		return
	}
	in.apply(c)
	c.Client = nil
	if err := h.DB.WithContext(r.Context()).Save(c).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete removes a draft or cancelled contract.
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if c.Status != models.ContractStatusDraft && c.Status != models.ContractStatusCancelled {
		h.fail(w, r, services.ErrNotEditable)
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(c).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Status answers POST /api/contracts/{id}/status.
func (h *ContractHandler) Status(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if !h.decode(w, r, &in) {
		return
	}
	status := models.ContractStatus(in.Status)
	if !status.Valid() {
		httpx.ValidationError(w, r, map[string]string{"status": "not_allowed"})
		return
	}
	c, ok := h.load(w, r, gate.ActionTransition)
	if !ok {
		return
	}
	if err := c.TransitionTo(status, h.now()); err != nil {
		h.fail(w, r, err)
		return
	}
	err := h.DB.WithContext(r.Context()).Model(c).Select("status", "sent_at", "signed_at").Updates(c).Error
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// PDF answers GET /api/contracts/{id}/pdf.
func (h *ContractHandler) PDF(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r, gate.ActionExport)
	if !ok {
		return
	}
	doc, err := h.docs.ContractPDF(r.Context(), c.UserID, c.ID)
	h.sendPDF(w, r, doc, err)
}

func (h *ContractHandler) check(w http.ResponseWriter, r *http.Request, userID uint, in *ContractInput) bool {
	v := in.violations()
	if in.ClientID != 0 {
		owned, err := clientBelongs(r.Context(), h.DB, userID, in.ClientID)
		if err != nil {
			h.fail(w, r, err)
			return false
		}
		if !owned {
			v.Add("client_id", "invalid")
		}
	}
	if !v.Empty() {
		httpx.ValidationError(w, r, v)
		return false
	}
	return true
}

func (h *ContractHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Contract, bool) {
	userID, ok := h.user(w, r)
	if !ok {
		return nil, false
	}
	id, ok := h.id(w, r)
	if !ok {
		return nil, false
	}
	c, err := ownedByUser[models.Contract](r.Context(), h.DB, userID, id, "Client")
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !h.authorize(w, r, action, "contract", c) {
		return nil, false
	}
	return c, true
}
