package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/validation"
)

// InvoiceItemInput is one line of an invoice being written.
type InvoiceItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Unit        string  `json:"unit"`
	VATRate     float64 `json:"vat_rate"`
}

// InvoiceInput is the writable part of an invoice.
type InvoiceInput struct {
	ClientID     uint               `json:"client_id"`
	Reference    string             `json:"reference"`
	IssueDate    time.Time          `json:"issue_date"`
	DueDate      time.Time          `json:"due_date"`
	Notes        string             `json:"notes"`
	PaymentTerms string             `json:"payment_terms"`
	Items        []InvoiceItemInput `json:"items"`
}

func (in *InvoiceInput) Validate() error {
	v := validation.Violations{}
	validation.RequiredID("client_id", in.ClientID, v)
	if in.IssueDate.IsZero() {
		v.Add("issue_date", "required")
	}
	if !in.DueDate.IsZero() && in.DueDate.Before(in.IssueDate) {
		v.Add("due_date", "out_of_range")
	}
	if len(in.Items) == 0 {
		v.Add("items", "required")
	}
	for i, it := range in.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		validation.Required(prefix+"description", it.Description, v)
		validation.PositiveFloat(prefix+"quantity", it.Quantity, v)
		validation.NonNegativeFloat(prefix+"unit_price", it.UnitPrice, v)
		validation.RangeFloat(prefix+"vat_rate", it.VATRate, 0, 1, v)
	}
	return invalid(v)
}

func (in *InvoiceInput) items() []models.InvoiceItem {
	out := make([]models.InvoiceItem, len(in.Items))
	for i, it := range in.Items {
		unit := it.Unit
		if unit == "" {
			unit = "unit"
		}
		out[i] = models.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Unit:        unit,
			VATRate:     it.VATRate,
			Position:    i,
		}
	}
	return out
}

// InvoiceService owns invoice numbering, editing rules and status changes.
type InvoiceService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db, now: time.Now}
}

// ComputeTotals calculates HT, TVA, and TTC for an invoice.
func (s *InvoiceService) ComputeTotals(inv *models.Invoice) (ht, tva, ttc float64) {
	ht, tva = inv.TotalHT(), inv.TotalVAT()
	return ht, tva, ht + tva
}

// GetRevenue sums the TTC total of the account's paid invoices.
func (s *InvoiceService) GetRevenue(ctx context.Context, userID uint) (float64, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, models.InvoiceStatusPaid).
		Preload("Items").
		Find(&invoices).Error
	if err != nil {
		return 0, err
	}
	var total float64
	for i := range invoices {
		_, _, ttc := s.ComputeTotals(&invoices[i])
		total += ttc
	}
	return total, nil
}

// List returns invoices newest first, filtered by status when non-empty.
func (s *InvoiceService) List(ctx context.Context, userID uint, status models.InvoiceStatus) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).Preload("Client").Preload("Items").Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Invoice
	if err := q.Order("issue_date DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}

func (s *InvoiceService) Get(ctx context.Context, userID, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Where("id = ? AND user_id = ?", id, userID).First(&inv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

func (s *InvoiceService) checkClient(tx *gorm.DB, userID, clientID uint) error {
	var n int64
	if err := tx.Model(&models.Client{}).Where("id = ? AND user_id = ?", clientID, userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return invalid(validation.Violations{"client_id": "invalid"})
	}
	return nil
}

// Create stores a draft invoice numbered INV-YYYY-NNNN.
func (s *InvoiceService) Create(ctx context.Context, userID uint, in InvoiceInput) (*models.Invoice, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	inv := models.Invoice{
		UserID:       userID,
		ClientID:     in.ClientID,
		Reference:    in.Reference,
		IssueDate:    in.IssueDate,
		DueDate:      in.DueDate,
		Status:       models.InvoiceStatusDraft,
		Notes:        in.Notes,
		PaymentTerms: in.PaymentTerms,
		Items:        in.items(),
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.IssueDate.AddDate(0, 0, 30)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkClient(tx, userID, in.ClientID); err != nil {
			return err
		}
		number, err := models.GenerateInvoiceNumber(tx, userID, inv.IssueDate.Year())
		if err != nil {
			return err
		}
		inv.Number = number
		return tx.Create(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Update rewrites a draft invoice and replaces its lines.
func (s *InvoiceService) Update(ctx context.Context, userID, id uint, in InvoiceInput) (*models.Invoice, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&inv).Error; err != nil {
			return notFound(err)
		}
		if !inv.CanEdit() {
			return ErrNotEditable
		}
		if err := s.checkClient(tx, userID, in.ClientID); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		inv.ClientID = in.ClientID
		inv.Reference = in.Reference
		inv.IssueDate = in.IssueDate
		inv.DueDate = in.DueDate
		if inv.DueDate.IsZero() {
			inv.DueDate = inv.IssueDate.AddDate(0, 0, 30)
		}
		inv.Notes = in.Notes
		inv.PaymentTerms = in.PaymentTerms
		inv.Items = in.items()
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Delete removes a draft invoice.
func (s *InvoiceService) Delete(ctx context.Context, userID, id uint) error {
	inv, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if !inv.CanEdit() {
		return ErrNotEditable
	}
	return s.db.WithContext(ctx).Select("Items").Delete(inv).Error
}

// Transition moves the invoice along draft -> final -> paid, or cancels it.
func (s *InvoiceService) Transition(ctx context.Context, userID, id uint, status models.InvoiceStatus) (*models.Invoice, error) {
	inv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if status == models.InvoiceStatusFinal && len(inv.Items) == 0 {
		return nil, invalid(validation.Violations{"items": "required"})
	}
	if err := inv.TransitionTo(status, s.now()); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(inv).Select("status", "paid_date").Updates(inv).Error; err != nil {
		return nil, fmt.Errorf("update invoice %d status: %w", id, err)
	}
	return inv, nil
}

// IsNotFound reports whether err means the record does not exist for this
// account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrTemplateNotFound)
}
