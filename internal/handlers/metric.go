package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/validation"
)

// MetricHandler stores the snapshots report generation reads from.
type MetricHandler struct {
	base
	now func() time.Time
}

func NewMetricHandler(db *gorm.DB, log *zap.Logger, authz Authorizer) *MetricHandler {
	return &MetricHandler{base: newBase(db, log, authz), now: time.Now}
}

type SnapshotInput struct {
	Source     models.MetricSource `json:"source"`
	Payload    map[string]any      `json:"payload"`
	CapturedAt *time.Time          `json:"captured_at"`
}

// Create answers POST /api/clients/{id}/metrics.
func (h *MetricHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	clientID, ok := h.id(w, r)
	if !ok {
		return
	}
	owned, err := clientBelongs(r.Context(), h.DB, userID, clientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !owned {
		httpx.Error(w, r, http.StatusNotFound, "not_found", nil)
		return
	}

	var in SnapshotInput
	if !h.decode(w, r, &in) {
		return
	}
	v := validation.Violations{}
	validation.OneOf("source", in.Source, models.MetricSources(), v)
	if in.Payload == nil {
		v.Add("payload", "required")
	}
	if !v.Empty() {
		httpx.ValidationError(w, r, v)
		return
	}

	snap := models.MetricSnapshot{
		UserID:     userID,
		ClientID:   clientID,
		Source:     in.Source,
		Payload:    datatypes.JSONMap(in.Payload),
		CapturedAt: h.now().UTC(),
	}
	if in.CapturedAt != nil {
		snap.CapturedAt = *in.CapturedAt
	}
	if err := h.DB.WithContext(r.Context()).Create(&snap).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, snap)
}

// List answers GET /api/clients/{id}/metrics?source=, newest first.
func (h *MetricHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	clientID, ok := h.id(w, r)
	if !ok {
		return
	}
	q := h.DB.WithContext(r.Context()).Where("user_id = ? AND client_id = ?", userID, clientID)
	if src := r.URL.Query().Get("source"); src != "" {
		q = q.Where("source = ?", src)
	}
	out := []models.MetricSnapshot{}
	if err := q.Order("captured_at DESC, id DESC").Limit(100).Find(&out).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
