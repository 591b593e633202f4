package metrics

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/internal/models"
)

// ErrNoSnapshot is returned when a client has no capture for a source.
var ErrNoSnapshot = errors.New("metrics: no snapshot")

// SnapshotSource serves the latest stored MetricSnapshot of one source.
type SnapshotSource struct {
	db     *gorm.DB
	source models.MetricSource
}

// NewSnapshotSource reads snapshots of source from db.
func NewSnapshotSource(db *gorm.DB, source models.MetricSource) *SnapshotSource {
	return &SnapshotSource{db: db, source: source}
}

// SnapshotSources returns one SnapshotSource per known metric source.
func SnapshotSources(db *gorm.DB) []Source {
	all := models.MetricSources()
	out := make([]Source, len(all))
	for i, s := range all {
		out[i] = NewSnapshotSource(db, s)
	}
	return out
}

func (s *SnapshotSource) Name() string { return string(s.source) }

func (s *SnapshotSource) Fetch(ctx context.Context, target Target) (map[string]any, error) {
	var snap models.MetricSnapshot
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND client_id = ? AND source = ?", target.UserID, target.ClientID, s.source).
		Order("captured_at DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w for %s", ErrNoSnapshot, s.source)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s snapshot: %w", s.source, err)
	}
	payload := map[string]any(snap.Payload)
	if payload == nil {
		payload = map[string]any{}
	}
	payload["captured_at"] = snap.CapturedAt.UTC().Format("2006-01-02T15:04:05Z")
	return payload, nil
}
