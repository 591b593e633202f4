package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/validation"
)

var brandColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CompanyHandler edits the agency identity printed on documents.
type CompanyHandler struct {
	base
}

func NewCompanyHandler(db *gorm.DB, log *zap.Logger) *CompanyHandler {
	return &CompanyHandler{base: newBase(db, log, nil)}
}

type CompanyInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Website    string `json:"website"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	VATNumber  string `json:"vat_number"`
	LogoURL    string `json:"logo_url"`
	BrandColor string `json:"brand_color"`
}

// Get answers GET /api/company. An account without settings gets an empty
// object.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	settings, err := h.settings(r, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

// Update answers PUT /api/company, creating the settings on first save.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in CompanyInput
	if !h.decode(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.Email("email", in.Email, v)
	validation.MaxLen("logo_url", in.LogoURL, 500, v)
	if in.BrandColor != "" && !brandColorRe.MatchString(in.BrandColor) {
		v.Add("brand_color", "invalid")
	}
	if !v.Empty() {
		httpx.ValidationError(w, r, v)
		return
	}

	settings, err := h.settings(r, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	settings.Name = in.Name
	settings.Email = in.Email
	settings.Phone = in.Phone
	settings.Website = in.Website
	settings.Address = in.Address
	settings.City = in.City
	settings.PostalCode = in.PostalCode
	settings.Country = in.Country
	settings.VATNumber = in.VATNumber
	settings.LogoURL = in.LogoURL
	settings.BrandColor = in.BrandColor
	if err := h.DB.WithContext(r.Context()).Save(settings).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *CompanyHandler) settings(r *http.Request, userID uint) (*models.CompanySettings, error) {
	var settings models.CompanySettings
	err := h.DB.WithContext(r.Context()).Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.CompanySettings{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
