// Package handlers exposes the JSON API. Every handler reads the session
// user from the request context and scopes its queries to that account.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/auth"
	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/ai"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/internal/policy"
	"github.com/diewo77/seo-backoffice/internal/services"
)

// Authorizer checks an action on a loaded resource. *policy.AuthGate
// implements it.
type Authorizer interface {
	Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error
}

// base carries what every handler needs.
type base struct {
	DB    *gorm.DB
	Log   *zap.Logger
	Authz Authorizer
}

func newBase(db *gorm.DB, log *zap.Logger, authz Authorizer) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{DB: db, Log: log, Authz: authz}
}

// user returns the session user or answers 401.
func (b *base) user(w http.ResponseWriter, r *http.Request) (uint, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || uid == 0 {
		httpx.Error(w, r, http.StatusUnauthorized, "unauthorized", nil)
		return 0, false
	}
	return uid, true
}

// id parses the {id} path value or answers 400.
func (b *base) id(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_id", nil)
	}
	return id, ok
}

// decode reads the JSON body into dst or answers 400.
func (b *base) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_json", nil)
		return false
	}
	return true
}

// authorize runs the ownership check on a loaded record. Without an
// Authorizer every action is allowed.
func (b *base) authorize(w http.ResponseWriter, r *http.Request, action gate.Action, resourceType string, resource any) bool {
	if b.Authz == nil {
		return true
	}
	if err := b.Authz.Authorize(r.Context(), action, resourceType, resource); err != nil {
		policy.WriteError(w, r, err)
		return false
	}
	return true
}

// fail maps a service error to its HTTP answer.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.ValidationError(w, r, verr.Violations)
	case errors.Is(err, services.ErrTemplateNotFound):
		httpx.Error(w, r, http.StatusNotFound, "template_not_found", nil)
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, models.ErrInvalidTransition):
		httpx.Error(w, r, http.StatusConflict, "invalid_status_transition", nil)
	case errors.Is(err, services.ErrNotEditable):
		httpx.Error(w, r, http.StatusConflict, "not_editable", nil)
	case errors.Is(err, services.ErrDefaultConflict):
		httpx.Error(w, r, http.StatusConflict, "default_conflict", nil)
	case errors.Is(err, services.ErrDefaultTemplateUsed):
		httpx.Error(w, r, http.StatusConflict, "default_template_delete", nil)
	case errors.Is(err, services.ErrReportNotGenerated):
		httpx.Error(w, r, http.StatusConflict, "report_not_generated", nil)
	case errors.Is(err, ai.ErrUnavailable):
		httpx.Error(w, r, http.StatusServiceUnavailable, "ai_unavailable", nil)
	case errors.Is(err, gate.ErrUnauthorized), errors.Is(err, gate.ErrForbidden):
		policy.WriteError(w, r, err)
	default:
		b.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
	}
}

// sendPDF answers with the document, or maps err. Errors not known to the
// services are rendering failures.
func (b *base) sendPDF(w http.ResponseWriter, r *http.Request, doc *services.Document, err error) {
	if err != nil {
		if isDomainError(err) {
			b.fail(w, r, err)
			return
		}
		b.Log.Error("pdf generation failed", zap.String("path", r.URL.Path), zap.Error(err))
		httpx.Error(w, r, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	httpx.Attachment(w, "application/pdf", doc.Filename, doc.Bytes)
}

func isDomainError(err error) bool {
	var verr *services.ValidationError
	return errors.As(err, &verr) ||
		services.IsNotFound(err) ||
		errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, services.ErrReportNotGenerated) ||
		errors.Is(err, models.ErrInvalidTransition)
}

// ownedByUser loads the record id of the account, preloading assoc.
func ownedByUser[T any](ctx context.Context, db *gorm.DB, userID, id uint, preload ...string) (*T, error) {
	q := db.WithContext(ctx)
	for _, p := range preload {
		q = q.Preload(p)
	}
	var rec T
	if err := q.Where("id = ? AND user_id = ?", id, userID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// clientBelongs reports whether clientID is one of the account's clients.
func clientBelongs(ctx context.Context, db *gorm.DB, userID, clientID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ? AND user_id = ?", clientID, userID).Count(&n).Error
	return n > 0, err
}

// statusInput is the body of every status change request.
type statusInput struct {
	Status string `json:"status"`
}
