package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/validation"
)

type TicketHandler struct {
	base
	now func() time.Time
}

func NewTicketHandler(db *gorm.DB, log *zap.Logger, authz Authorizer) *TicketHandler {
	return &TicketHandler{base: newBase(db, log, authz), now: time.Now}
}

type TicketInput struct {
	ClientID    *uint                 `json:"client_id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    models.TicketPriority `json:"priority"`
}

func (in *TicketInput) violations() validation.Violations {
	v := validation.Violations{}
	in.Subject = strings.TrimSpace(in.Subject)
	validation.Required("subject", in.Subject, v)
	validation.MaxLen("subject", in.Subject, 255, v)
	if in.Priority == "" {
		in.Priority = models.TicketPriorityNormal
	} else if !in.Priority.Valid() {
		v.Add("priority", "not_allowed")
	}
	if in.ClientID != nil && *in.ClientID == 0 {
		in.ClientID = nil
	}
	return v
}

// List answers GET /api/tickets?status=&client_id=, most urgent work first.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	q := h.DB.WithContext(r.Context()).Preload("Client").Where("user_id = ?", userID)
	if st := r.URL.Query().Get("status"); st != "" {
		q = q.Where("status = ?", st)
	}
	if cid := r.URL.Query().Get("client_id"); cid != "" {
		q = q.Where("client_id = ?", cid)
	}
	out := []models.Ticket{}
	err := q.Order("CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END, created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *TicketHandler) View(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in TicketInput
	if !h.decode(w, r, &in) || !h.check(w, r, userID, &in) {
		return
	}
	t := models.Ticket{
		UserID:      userID,
		ClientID:    in.ClientID,
		Subject:     in.Subject,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      models.TicketStatusOpen,
	}
	if err := h.DB.WithContext(r.Context()).Create(&t).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

// Update edits the ticket text and priority. Closed tickets are frozen.
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	if t.Status == models.TicketStatusClosed {
		httpx.Error(w, r, http.StatusConflict, "not_editable", nil)
		return
	}
	var in TicketInput
	if !h.decode(w, r, &in) || !h.check(w, r, t.UserID, &in) {
		return
	}
	t.ClientID = in.ClientID
	t.Client = nil
	t.Subject = in.Subject
	t.Description = in.Description
	t.Priority = in.Priority
	if err := h.DB.WithContext(r.Context()).Save(t).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(t).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Status answers POST /api/tickets/{id}/status.
func (h *TicketHandler) Status(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if !h.decode(w, r, &in) {
		return
	}
	status := models.TicketStatus(in.Status)
	if !status.Valid() {
		httpx.ValidationError(w, r, map[string]string{"status": "not_allowed"})
		return
	}
	t, ok := h.load(w, r, gate.ActionTransition)
	if !ok {
		return
	}
	if err := t.TransitionTo(status, h.now()); err != nil {
		h.fail(w, r, err)
		return
	}
	// Select writes resolved_at even when reopening cleared it.
	err := h.DB.WithContext(r.Context()).Model(t).Select("status", "resolved_at", "closed_at").Updates(t).Error
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *TicketHandler) check(w http.ResponseWriter, r *http.Request, userID uint, in *TicketInput) bool {
	v := in.violations()
	if in.ClientID != nil {
		owned, err := clientBelongs(r.Context(), h.DB, userID, *in.ClientID)
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

func (h *TicketHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Ticket, bool) {
	userID, ok := h.user(w, r)
	if !ok {
		return nil, false
	}
	id, ok := h.id(w, r)
	if !ok {
		return nil, false
	}
	t, err := ownedByUser[models.Ticket](r.Context(), h.DB, userID, id, "Client")
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !h.authorize(w, r, action, "ticket", t) {
		return nil, false
	}
	return t, true
}
