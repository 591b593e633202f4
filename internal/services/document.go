package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/internal/pdf"
	"github.com/diewo77/seo-backoffice/validation"
)

// BodySectionOrder places an entity's own content between a template's
// introductory sections and its closing ones (terms, signatures...).
const BodySectionOrder = 50

// DateLayout is how dates appear in rendered documents.
const DateLayout = "02/01/2006"

// Document is a rendered PDF ready to be served.
type Document struct {
	Filename string
	Bytes    []byte
}

// DocumentService renders templates and business records to PDF.
type DocumentService struct {
	db        *gorm.DB
	templates *TemplateService
	asm       *pdf.Assembler
	now       func() time.Time
}

func NewDocumentService(conn *gorm.DB, templates *TemplateService, asm *pdf.Assembler) *DocumentService {
	if asm == nil {
		asm = pdf.NewAssembler(pdf.DefaultOptions())
	}
	return &DocumentService{db: conn, templates: templates, asm: asm, now: time.Now}
}

// BuiltinTemplate is the fallback layout used when an account has no
// default template for docType.
func BuiltinTemplate(docType doctemplate.DocumentType) doctemplate.Template {
	return doctemplate.Template{
		Name:         "Standard",
		DocumentType: docType,
		HeaderHTML:   "<p>{{companyName}}</p>",
		FooterHTML:   "<p>{{reportTitle}} | {{currentPage}}/{{totalPages}}</p>",
	}
}

// Branding returns the render data derived from the account's company
// settings. Missing settings leave the fields empty.
func (s *DocumentService) Branding(ctx context.Context, userID uint) (doctemplate.Data, error) {
	var cs models.CompanySettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cs).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return doctemplate.Data{}, fmt.Errorf("load company settings: %w", err)
	}
	return doctemplate.Data{
		CompanyName: cs.Name,
		CompanyLogo: cs.LogoURL,
		ReportDate:  s.now().Format(DateLayout),
	}, nil
}

// Layout resolves the template to render docType with: templateID when
// non-zero, else the account default, else the built-in layout. An explicit
// template of another document type is a validation error.
func (s *DocumentService) Layout(ctx context.Context, userID uint, docType doctemplate.DocumentType, templateID uint) (doctemplate.Template, error) {
	if templateID != 0 {
		rec, err := s.templates.Get(ctx, userID, templateID)
		if err != nil {
			return doctemplate.Template{}, err
		}
		if rec.DocumentType != docType {
			return doctemplate.Template{}, invalid(validation.Violations{"template": "document_type_mismatch"})
		}
		return rec.Template(), nil
	}
	rec, err := s.templates.Default(ctx, userID, docType)
	switch {
	case errors.Is(err, ErrTemplateNotFound):
		return BuiltinTemplate(docType), nil
	case err != nil:
		return doctemplate.Template{}, err
	}
	return rec.Template(), nil
}

// Render assembles t with data.
func (s *DocumentService) Render(t doctemplate.Template, data doctemplate.Data) ([]byte, error) {
	return s.asm.Assemble(t, data)
}

// sampleData fills every token so previews show where values land.
func (s *DocumentService) sampleData(ctx context.Context, userID uint, t doctemplate.Template) (doctemplate.Data, error) {
	data, err := s.Branding(ctx, userID)
	if err != nil {
		return data, err
	}
	if data.CompanyName == "" {
		data.CompanyName = "Votre agence"
	}
	data.ReportTitle = t.Name
	data.ClientName = "Client exemple"
	return data, nil
}

// TemplatePreview renders a stored template to standalone HTML with sample
// data.
func (s *DocumentService) TemplatePreview(ctx context.Context, userID, id uint) (string, error) {
	rec, err := s.templates.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	t := rec.Template()
	data, err := s.sampleData(ctx, userID, t)
	if err != nil {
		return "", err
	}
	return doctemplate.RenderHTML(t, data), nil
}

// TemplatePDF renders a stored template to PDF with sample data.
func (s *DocumentService) TemplatePDF(ctx context.Context, userID, id uint) (*Document, error) {
	rec, err := s.templates.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t := rec.Template()
	data, err := s.sampleData(ctx, userID, t)
	if err != nil {
		return nil, err
	}
	b, err := s.Render(t, data)
	if err != nil {
		return nil, err
	}
	return &Document{Filename: fmt.Sprintf("template-%d.pdf", rec.ID), Bytes: b}, nil
}

func (s *DocumentService) renderRecord(ctx context.Context, userID uint, docType doctemplate.DocumentType, title string, client *models.Client, body doctemplate.Section, filename string) (*Document, error) {
	t, err := s.Layout(ctx, userID, docType, 0)
	if err != nil {
		return nil, err
	}
	data, err := s.Branding(ctx, userID)
	if err != nil {
		return nil, err
	}
	data.ReportTitle = title
	if client != nil {
		data.ClientName = client.DisplayName()
	}
	body.IsEnabled = true
	body.Order = BodySectionOrder
	t.Sections = append(append([]doctemplate.Section(nil), t.Sections...), body)

	b, err := s.Render(t, data)
	if err != nil {
		return nil, err
	}
	return &Document{Filename: filename, Bytes: b}, nil
}

// InvoicePDF renders an invoice with its lines and totals.
func (s *DocumentService) InvoicePDF(ctx context.Context, userID, id uint) (*Document, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Where("id = ? AND user_id = ?", id, userID).First(&inv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return s.renderRecord(ctx, userID, doctemplate.Invoice, "Facture "+inv.Number, inv.Client,
		doctemplate.Section{ID: "invoice-body", Name: "Détail", Content: invoiceHTML(&inv)},
		inv.Number+".pdf")
}

// ContractPDF renders a contract body.
func (s *DocumentService) ContractPDF(ctx context.Context, userID, id uint) (*Document, error) {
	var c models.Contract
	if err := s.db.WithContext(ctx).Preload("Client").Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Début : %s</p>", c.StartDate.Format(DateLayout))
	if c.EndDate != nil {
		fmt.Fprintf(&b, "<p>Fin : %s</p>", c.EndDate.Format(DateLayout))
	}
	fmt.Fprintf(&b, "<p>Honoraires mensuels : %s</p>", money(c.MonthlyFee))
	b.WriteString(c.Body)
	return s.renderRecord(ctx, userID, doctemplate.Contract, c.Title, c.Client,
		doctemplate.Section{ID: "contract-body", Name: "Conditions particulières", Content: b.String()},
		fmt.Sprintf("contract-%d.pdf", c.ID))
}

// ProposalPDF renders a proposal body.
func (s *DocumentService) ProposalPDF(ctx context.Context, userID, id uint) (*Document, error) {
	var p models.Proposal
	if err := s.db.WithContext(ctx).Preload("Client").Where("id = ? AND user_id = ?", id, userID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	var b strings.Builder
	b.WriteString(p.Body)
	fmt.Fprintf(&b, "<p>Montant : %s HT</p>", money(p.Amount))
	if p.ValidUntil != nil {
		fmt.Fprintf(&b, "<p>Valable jusqu'au %s</p>", p.ValidUntil.Format(DateLayout))
	}
	return s.renderRecord(ctx, userID, doctemplate.Proposal, p.Title, p.Client,
		doctemplate.Section{ID: "proposal-body", Name: "Notre proposition", Content: b.String()},
		fmt.Sprintf("proposal-%d.pdf", p.ID))
}

func invoiceHTML(inv *models.Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Facture n° %s du %s, échéance %s</p>",
		html.EscapeString(inv.Number), inv.IssueDate.Format(DateLayout), inv.DueDate.Format(DateLayout))
	b.WriteString("<ul>")
	for _, item := range inv.Items {
		fmt.Fprintf(&b, "<li>%s : %g x %s = %s HT (TVA %g%%)</li>",
			html.EscapeString(item.Description), item.Quantity, money(item.UnitPrice),
			money(item.TotalHT()), item.VATRate*100)
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p>Total HT : %s</p><p>TVA : %s</p><p>Total TTC : %s</p>",
		money(inv.TotalHT()), money(inv.TotalVAT()), money(inv.TotalTTC()))
	if inv.PaymentTerms != "" {
		b.WriteString("<p>" + html.EscapeString(inv.PaymentTerms) + "</p>")
	}
	return b.String()
}

func money(v float64) string {
	return fmt.Sprintf("%.2f €", v)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
