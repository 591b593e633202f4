package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/seo-backoffice/internal/db"
	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/validation"
)

// TemplateInput is the writable part of a document template.
type TemplateInput struct {
	Name          string                   `json:"name"`
	Description   string                   `json:"description"`
	DocumentType  doctemplate.DocumentType `json:"document_type"`
	IsDefault     bool                     `json:"is_default"`
	Sections      []doctemplate.Section    `json:"sections"`
	HeaderHTML    string                   `json:"header_html"`
	FooterHTML    string                   `json:"footer_html"`
	CoverPageHTML string                   `json:"cover_page_html"`
	CSS           string                   `json:"css"`
}

func (in TemplateInput) template() doctemplate.Template {
	return doctemplate.Template{
		Name:          strings.TrimSpace(in.Name),
		DocumentType:  in.DocumentType,
		Sections:      in.Sections,
		HeaderHTML:    in.HeaderHTML,
		FooterHTML:    in.FooterHTML,
		CoverPageHTML: in.CoverPageHTML,
		CSS:           in.CSS,
	}
}

// Validate checks required fields and rejects unknown placeholders. Sections
// without an id get a fresh one.
func (in *TemplateInput) Validate() error {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.MaxLen("description", in.Description, 500, v)
	if in.DocumentType == "" {
		v.Add("document_type", "required")
	} else {
		validation.OneOf("document_type", in.DocumentType, doctemplate.DocumentTypes(), v)
	}
	for i := range in.Sections {
		s := &in.Sections[i]
		validation.Required(fmt.Sprintf("sections[%d].name", i), s.Name, v)
		if strings.TrimSpace(s.ID) == "" {
			s.ID = uuid.NewString()
		}
	}
	if err := doctemplate.Validate(in.template()); err != nil {
		v.Add("template", "unknown_token")
	}
	return invalid(v)
}

// TemplateService is the per-account template store.
type TemplateService struct {
	db *gorm.DB
}

func NewTemplateService(conn *gorm.DB) *TemplateService {
	return &TemplateService{db: conn}
}

// List returns the account's templates, all types when docType is empty.
func (s *TemplateService) List(ctx context.Context, userID uint, docType doctemplate.DocumentType) ([]models.DocumentTemplate, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if docType != "" {
		q = q.Where("document_type = ?", docType)
	}
	var out []models.DocumentTemplate
	if err := q.Order("document_type, is_default DESC, name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

// Get loads one template owned by userID.
func (s *TemplateService) Get(ctx context.Context, userID, id uint) (*models.DocumentTemplate, error) {
	return s.get(s.db.WithContext(ctx), userID, id)
}

func (s *TemplateService) get(tx *gorm.DB, userID, id uint) (*models.DocumentTemplate, error) {
	var t models.DocumentTemplate
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load template %d: %w", id, err)
	}
	return &t, nil
}

// Default returns the account's default template for docType, or
// ErrTemplateNotFound.
func (s *TemplateService) Default(ctx context.Context, userID uint, docType doctemplate.DocumentType) (*models.DocumentTemplate, error) {
	var t models.DocumentTemplate
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND document_type = ? AND is_default = ?", userID, docType, true).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load default %s template: %w", docType, err)
	}
	return &t, nil
}

// Create stores a new template. When in.IsDefault is set the previous
// default of that type is cleared in the same transaction.
func (s *TemplateService) Create(ctx context.Context, userID uint, in TemplateInput) (*models.DocumentTemplate, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rec := models.DocumentTemplate{UserID: userID, Description: in.Description}
	rec.SetTemplate(in.template())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IsDefault {
			if err := s.clearDefault(tx, userID, rec.DocumentType, 0); err != nil {
				return err
			}
			rec.IsDefault = true
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, s.mapWriteError("create template", err)
	}
	return &rec, nil
}

// Update replaces the template's content. Changing the document type of the
// default template is refused since it would leave the old type without one.
func (s *TemplateService) Update(ctx context.Context, userID, id uint, in TemplateInput) (*models.DocumentTemplate, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out *models.DocumentTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.get(s.lock(tx), userID, id)
		if err != nil {
			return err
		}
		if rec.IsDefault && rec.DocumentType != in.DocumentType {
			return invalid(validation.Violations{"document_type": "not_allowed"})
		}
		rec.Description = in.Description
		rec.SetTemplate(in.template())
		if in.IsDefault && !rec.IsDefault {
			if err := s.clearDefault(tx, userID, rec.DocumentType, rec.ID); err != nil {
				return err
			}
			rec.IsDefault = true
		}
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, s.mapWriteError("update template", err)
	}
	return out, nil
}

// Delete soft-deletes a template. The default template of a type cannot be
// deleted while it is the default.
func (s *TemplateService) Delete(ctx context.Context, userID, id uint) error {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if rec.IsDefault {
		return ErrDefaultTemplateUsed
	}
	if err := s.db.WithContext(ctx).Delete(rec).Error; err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	return nil
}

// Duplicate copies a template under a new name. The copy is never the
// default and its sections get fresh ids.
func (s *TemplateService) Duplicate(ctx context.Context, userID, id uint, name string) (*models.DocumentTemplate, error) {
	src, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t := src.Template()
	if strings.TrimSpace(name) == "" {
		name = t.Name + " (copie)"
	}
	sections := make([]doctemplate.Section, len(t.Sections))
	for i, sec := range t.Sections {
		sec.ID = ""
		sections[i] = sec
	}
	return s.Create(ctx, userID, TemplateInput{
		Name:          name,
		Description:   src.Description,
		DocumentType:  t.DocumentType,
		Sections:      sections,
		HeaderHTML:    t.HeaderHTML,
		FooterHTML:    t.FooterHTML,
		CoverPageHTML: t.CoverPageHTML,
		CSS:           t.CSS,
	})
}

// SetDefault makes id the only default template of its document type. The
// target row is locked, every other default of that type is cleared and the
// flag is set, all in one transaction.
func (s *TemplateService) SetDefault(ctx context.Context, userID, id uint) (*models.DocumentTemplate, error) {
	var out *models.DocumentTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.get(s.lock(tx), userID, id)
		if err != nil {
			return err
		}
		if err := s.clearDefault(tx, userID, rec.DocumentType, rec.ID); err != nil {
			return err
		}
		if err := tx.Model(rec).Update("is_default", true).Error; err != nil {
			return err
		}
		rec.IsDefault = true
		out = rec
		return nil
	})
	if err != nil {
		return nil, s.mapWriteError("set default template", err)
	}
	return out, nil
}

// lock adds FOR UPDATE on Postgres. SQLite serializes writers already.
func (s *TemplateService) lock(tx *gorm.DB) *gorm.DB {
	if db.IsPostgres(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *TemplateService) clearDefault(tx *gorm.DB, userID uint, docType doctemplate.DocumentType, keepID uint) error {
	err := tx.Model(&models.DocumentTemplate{}).
		Where("user_id = ? AND document_type = ? AND is_default = ? AND id <> ?", userID, docType, true, keepID).
		Update("is_default", false).Error
	if err != nil {
		return fmt.Errorf("clear default %s template: %w", docType, err)
	}
	return nil
}

func (s *TemplateService) mapWriteError(op string, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrTemplateNotFound):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, ErrDefaultConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
