package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportType selects the prompt used to generate a report.
type ReportType string

const (
	ReportTypeSEOAudit ReportType = "seo-audit"
	ReportTypeLocalSEO ReportType = "local-seo"
	ReportTypeMonthly  ReportType = "monthly"
)

var reportTypes = []ReportType{ReportTypeSEOAudit, ReportTypeLocalSEO, ReportTypeMonthly}

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool { return slices.Contains(reportTypes, t) }

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusGenerated ReportStatus = "generated"
	ReportStatusPublished ReportStatus = "published"
)

var reportTransitions = transitions[ReportStatus]{
	ReportStatusDraft:     {ReportStatusGenerated},
	ReportStatusGenerated: {ReportStatusGenerated, ReportStatusPublished},
}

// Report is an AI-written SEO report for a client. Content holds the raw
// markdown returned by the model, HTML its sanitized rendering.
type Report struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Type   ReportType   `gorm:"size:20;not null" json:"type"`
	Title  string       `gorm:"size:255;not null" json:"title"`
	Status ReportStatus `gorm:"size:20;not null;default:'draft'" json:"status"`

	AuditData datatypes.JSONMap `json:"audit_data,omitempty"`
	// SourceErrors records metrics sources that failed during the gather.
	SourceErrors datatypes.JSONMap `json:"source_errors,omitempty"`

	Content string `gorm:"type:text" json:"content,omitempty"`
	HTML    string `gorm:"type:text" json:"html,omitempty"`
	Model   string `gorm:"size:100" json:"model,omitempty"`
	Prompt  string `gorm:"type:text" json:"prompt,omitempty"`

	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// GetUserID implements the Ownable interface.
func (r *Report) GetUserID() uint {
	return r.UserID
}

// TransitionTo moves the report to status. Regenerating a generated report
// is allowed; a published report is frozen.
func (r *Report) TransitionTo(status ReportStatus, now time.Time) error {
	if err := reportTransitions.check(r.Status, status); err != nil {
		return err
	}
	r.Status = status
	switch status {
	case ReportStatusGenerated:
		r.GeneratedAt = &now
	case ReportStatusPublished:
		r.PublishedAt = &now
	}
	return nil
}
