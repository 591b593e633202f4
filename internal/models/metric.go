package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// MetricSource names a provider of SEO measurements.
type MetricSource string

const (
	MetricSourceSearchConsole MetricSource = "search_console"
	MetricSourceAnalytics     MetricSource = "analytics"
	MetricSourcePageSpeed     MetricSource = "pagespeed"
	MetricSourceLocalListings MetricSource = "local_listings"
)

// MetricSources returns every known source.
func MetricSources() []MetricSource {
	return []MetricSource{
		MetricSourceSearchConsole,
		MetricSourceAnalytics,
		MetricSourcePageSpeed,
		MetricSourceLocalListings,
	}
}

// Valid reports whether s is a known source.
func (s MetricSource) Valid() bool { return slices.Contains(MetricSources(), s) }

// MetricSnapshot is one capture of a source for a client. The latest
// snapshot per source feeds report generation.
type MetricSnapshot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID   uint         `gorm:"index;not null" json:"user_id"`
	ClientID uint         `gorm:"index:idx_snapshot_lookup;not null" json:"client_id"`
	Source   MetricSource `gorm:"size:30;not null;index:idx_snapshot_lookup" json:"source"`

	Payload    datatypes.JSONMap `json:"payload"`
	CapturedAt time.Time         `gorm:"not null;index:idx_snapshot_lookup" json:"captured_at"`
}

// GetUserID implements the Ownable interface.
func (m *MetricSnapshot) GetUserID() uint {
	return m.UserID
}
