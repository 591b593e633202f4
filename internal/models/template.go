package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/internal/doctemplate"
)

// DocumentTemplate is a stored layout for one document type. At most one
// template per (user, document type) has IsDefault set; a partial unique
// index created by db.Migrate backs that up.
type DocumentTemplate struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Name         string                   `gorm:"size:255;not null" json:"name"`
	Description  string                   `gorm:"size:500" json:"description,omitempty"`
	DocumentType doctemplate.DocumentType `gorm:"size:20;not null;index" json:"document_type"`
	IsDefault    bool                     `gorm:"not null;default:false" json:"is_default"`

	Sections      datatypes.JSONType[[]doctemplate.Section] `json:"sections"`
	HeaderHTML    string                                    `gorm:"type:text" json:"header_html"`
	FooterHTML    string                                    `gorm:"type:text" json:"footer_html"`
	CoverPageHTML string                                    `gorm:"type:text" json:"cover_page_html"`
	CSS           string                                    `gorm:"type:text" json:"css"`
}

// GetUserID implements the Ownable interface.
func (d *DocumentTemplate) GetUserID() uint {
	return d.UserID
}

// Template returns the render-time view of the record.
func (d *DocumentTemplate) Template() doctemplate.Template {
	return doctemplate.Template{
		Name:          d.Name,
		DocumentType:  d.DocumentType,
		Sections:      d.Sections.Data(),
		HeaderHTML:    d.HeaderHTML,
		FooterHTML:    d.FooterHTML,
		CoverPageHTML: d.CoverPageHTML,
		CSS:           d.CSS,
	}
}

// SetTemplate copies the layout fields of t onto the record.
func (d *DocumentTemplate) SetTemplate(t doctemplate.Template) {
	d.Name = t.Name
	d.DocumentType = t.DocumentType
	d.Sections = datatypes.NewJSONType(t.Sections)
	d.HeaderHTML = t.HeaderHTML
	d.FooterHTML = t.FooterHTML
	d.CoverPageHTML = t.CoverPageHTML
	d.CSS = t.CSS
}

// All lists every model handled by AutoMigrate, in dependency order.
func All() []any {
	return []any{
		&Permission{},
		&Profile{},
		&User{},
		&CompanySettings{},
		&Client{},
		&Invoice{},
		&InvoiceItem{},
		&Contract{},
		&Proposal{},
		&Report{},
		&Ticket{},
		&MetricSnapshot{},
		&DocumentTemplate{},
	}
}
