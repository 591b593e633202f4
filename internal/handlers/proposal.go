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

type ProposalHandler struct {
	base
	docs *services.DocumentService
	now  func() time.Time
}

func NewProposalHandler(db *gorm.DB, log *zap.Logger, authz Authorizer, docs *services.DocumentService) *ProposalHandler {
	return &ProposalHandler{base: newBase(db, log, authz), docs: docs, now: time.Now}
}

type ProposalInput struct {
	ClientID   uint       `json:"client_id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Amount     float64    `json:"amount"`
	ValidUntil *time.Time `json:"valid_until"`
}

func (in *ProposalInput) violations() validation.Violations {
	v := validation.Violations{}
	in.Title = strings.TrimSpace(in.Title)
	validation.RequiredID("client_id", in.ClientID, v)
	validation.Required("title", in.Title, v)
	validation.MaxLen("title", in.Title, 255, v)
	validation.NonNegativeFloat("amount", in.Amount, v)
	if _, unknown := doctemplate.Tokens(in.Body); len(unknown) > 0 {
		v.Add("body", "unknown_token")
	}
	return v
}

func (in *ProposalInput) apply(p *models.Proposal) {
	p.ClientID = in.ClientID
	p.Title = in.Title
	p.Body = in.Body
	p.Amount = in.Amount
	p.ValidUntil = in.ValidUntil
}

// proposalView flags proposals whose validity date has passed.
type proposalView struct {
	*models.Proposal
	Expired bool `json:"expired"`
}

func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
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
	var list []models.Proposal
	if err := q.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	now := h.now()
	out := make([]proposalView, len(list))
	for i := range list {
		out[i] = proposalView{Proposal: &list[i], Expired: list[i].Expired(now)}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *ProposalHandler) View(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, proposalView{Proposal: p, Expired: p.Expired(h.now())})
}

func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in ProposalInput
	if !h.decode(w, r, &in) || !h.check(w, r, userID, &in) {
		return
	}
	p := models.Proposal{UserID: userID, Status: models.ProposalStatusDraft}
	in.apply(&p)
	if err := h.DB.WithContext(r.Context()).Create(&p).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// Update rewrites a draft proposal.
func (h *ProposalHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	if p.Status != models.ProposalStatusDraft {
		h.fail(w, r, services.ErrNotEditable)
		return
	}
	var in ProposalInput
	if !h.decode(w, r, &in) || !h.check(w, r, p.UserID, &in) {
		return
	}
	in.apply(p)
	p.Client = nil
	if err := h.DB.WithContext(r.Context()).Save(p).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Delete removes a proposal that was never sent.
func (h *ProposalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if p.Status != models.ProposalStatusDraft {
		h.fail(w, r, services.ErrNotEditable)
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(p).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Status answers POST /api/proposals/{id}/status. An expired proposal can
// no longer be accepted.
func (h *ProposalHandler) Status(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if !h.decode(w, r, &in) {
		return
	}
	status := models.ProposalStatus(in.Status)
	if !status.Valid() {
		httpx.ValidationError(w, r, map[string]string{"status": "not_allowed"})
		return
	}
	p, ok := h.load(w, r, gate.ActionTransition)
	if !ok {
		return
	}
	now := h.now()
	if status == models.ProposalStatusAccepted && p.Expired(now) {
		httpx.ValidationError(w, r, map[string]string{"valid_until": "out_of_range"})
		return
	}
	if err := p.TransitionTo(status, now); err != nil {
		h.fail(w, r, err)
		return
	}
	err := h.DB.WithContext(r.Context()).Model(p).Select("status", "sent_at", "decided_at").Updates(p).Error
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProposalHandler) PDF(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r, gate.ActionExport)
	if !ok {
		return
	}
	doc, err := h.docs.ProposalPDF(r.Context(), p.UserID, p.ID)
	h.sendPDF(w, r, doc, err)
}

func (h *ProposalHandler) check(w http.ResponseWriter, r *http.Request, userID uint, in *ProposalInput) bool {
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

func (h *ProposalHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Proposal, bool) {
	userID, ok := h.user(w, r)
	if !ok {
		return nil, false
	}
	id, ok := h.id(w, r)
	if !ok {
		return nil, false
	}
	p, err := ownedByUser[models.Proposal](r.Context(), h.DB, userID, id, "Client")
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !h.authorize(w, r, action, "proposal", p) {
		return nil, false
	}
	return p, true
}
