package db

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/internal/doctemplate"
	"github.com/diewo77/seo-backoffice/internal/models"
)

//go:embed seeds/templates.yaml
var templatesYAML []byte

type templateFile struct {
	Templates []doctemplate.Template `yaml:"templates"`
}

// ParseTemplates decodes a YAML document holding a "templates" list and
// validates every entry.
func ParseTemplates(data []byte) ([]doctemplate.Template, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	for i, t := range f.Templates {
		if t.Name == "" {
			return nil, fmt.Errorf("template %d: name is required", i)
		}
		if !t.DocumentType.Valid() {
			return nil, fmt.Errorf("template %q: invalid document type %q", t.Name, t.DocumentType)
		}
		if err := doctemplate.Validate(t); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
	}
	return f.Templates, nil
}

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() []doctemplate.Template {
	ts, err := ParseTemplates(templatesYAML)
	if err != nil {
		panic(err)
	}
	return ts
}

// SeedTemplates gives userID the built-in templates unless the account
// already owns templates of that document type. The first template seeded
// per type becomes the default.
func SeedTemplates(conn *gorm.DB, userID uint) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		skip := map[doctemplate.DocumentType]bool{}
		defaulted := map[doctemplate.DocumentType]bool{}
		for _, t := range DefaultTemplates() {
			if _, checked := skip[t.DocumentType]; !checked {
				var n int64
				if err := tx.Model(&models.DocumentTemplate{}).
					Where("user_id = ? AND document_type = ?", userID, t.DocumentType).
					Count(&n).Error; err != nil {
					return fmt.Errorf("count %s templates: %w", t.DocumentType, err)
				}
				skip[t.DocumentType] = n > 0
			}
			if skip[t.DocumentType] {
				continue
			}
			rec := models.DocumentTemplate{UserID: userID, IsDefault: !defaulted[t.DocumentType]}
			rec.SetTemplate(t)
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("seed template %q: %w", t.Name, err)
			}
			defaulted[t.DocumentType] = true
		}
		return nil
	})
}
