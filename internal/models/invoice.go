package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusFinal     InvoiceStatus = "final"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

var invoiceTransitions = transitions[InvoiceStatus]{
	InvoiceStatusDraft: {InvoiceStatusFinal, InvoiceStatusCancelled},
	InvoiceStatusFinal: {InvoiceStatusPaid, InvoiceStatusCancelled},
}

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool { return invoiceTransitions.valid(s) }

// Invoice is a billing document sent to a client.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"index;not null;uniqueIndex:idx_invoice_user_number" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Number is unique per tenant, format INV-YYYY-NNNN.
	Number    string `gorm:"size:50;not null;uniqueIndex:idx_invoice_user_number" json:"number"`
	Reference string `gorm:"size:100" json:"reference,omitempty"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Status InvoiceStatus `gorm:"size:20;not null;default:'draft'" json:"status"`

	Notes        string `gorm:"type:text" json:"notes,omitempty"`
	PaymentTerms string `gorm:"size:500" json:"payment_terms,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (i *Invoice) GetUserID() uint {
	return i.UserID
}

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsFinal returns true once the invoice has been issued.
func (i *Invoice) IsFinal() bool {
	return i.Status == InvoiceStatusFinal || i.Status == InvoiceStatusPaid
}

// CanEdit returns true while items may still change.
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// TransitionTo moves the invoice to status, stamping PaidDate on payment.
func (i *Invoice) TransitionTo(status InvoiceStatus, now time.Time) error {
	if err := invoiceTransitions.check(i.Status, status); err != nil {
		return err
	}
	i.Status = status
	if status == InvoiceStatusPaid {
		i.PaidDate = &now
	}
	return nil
}

// NextStatuses lists the statuses reachable from the current one.
func (i *Invoice) NextStatuses() []InvoiceStatus {
	return invoiceTransitions.next(i.Status)
}

// TotalHT is the total excluding VAT.
func (i *Invoice) TotalHT() float64 {
	var total float64
	for _, item := range i.Items {
		total += item.TotalHT()
	}
	return total
}

// TotalVAT is the total VAT amount.
func (i *Invoice) TotalVAT() float64 {
	var total float64
	for _, item := range i.Items {
		total += item.TotalVAT()
	}
	return total
}

// TotalTTC is the total including VAT.
func (i *Invoice) TotalTTC() float64 {
	return i.TotalHT() + i.TotalVAT()
}

// InvoiceItem is one billed line: an SEO retainer, an audit, a set of
// backlinks...
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"type:decimal(10,3);not null;default:1" json:"quantity"`
	UnitPrice   float64 `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Unit        string  `gorm:"size:50;default:'unit'" json:"unit"`
	// VATRate is a fraction: 0.20 means 20%.
	VATRate float64 `gorm:"type:decimal(5,4);not null" json:"vat_rate"`

	Position int `gorm:"default:0" json:"position"`
}

// TotalHT is the line total excluding VAT.
func (item *InvoiceItem) TotalHT() float64 {
	return item.Quantity * item.UnitPrice
}

// TotalVAT is the VAT amount for this line.
func (item *InvoiceItem) TotalVAT() float64 {
	return item.TotalHT() * item.VATRate
}

// TotalTTC is the line total including VAT.
func (item *InvoiceItem) TotalTTC() float64 {
	return item.TotalHT() + item.TotalVAT()
}

// GenerateInvoiceNumber returns the next number for userID in year.
// Format: INV-YYYY-NNNN (e.g., INV-2026-0001). Soft-deleted invoices keep
// their number, so they are counted too.
func GenerateInvoiceNumber(db *gorm.DB, userID uint, year int) (string, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	var count int64
	err := db.Unscoped().Model(&Invoice{}).
		Where("user_id = ? AND issue_date >= ? AND issue_date < ?", userID, start, end).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%04d", year, count+1), nil
}
