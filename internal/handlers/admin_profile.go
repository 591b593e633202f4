package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/validation"
)

// ProfileCache drops cached profiles after an admin change.
// *policy.AuthGate implements it.
type ProfileCache interface {
	InvalidateUser(userID uint)
	InvalidateAll()
}

// AdminProfileHandler manages profiles and their permissions.
type AdminProfileHandler struct {
	base
	cache ProfileCache
}

func NewAdminProfileHandler(db *gorm.DB, log *zap.Logger, cache ProfileCache) *AdminProfileHandler {
	return &AdminProfileHandler{base: newBase(db, log, nil), cache: cache}
}

type ProfileInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type permissionsInput struct {
	// Permissions are "resource:action" codes.
	Permissions []string `json:"permissions"`
}

func (h *AdminProfileHandler) invalidateAll() {
	if h.cache != nil {
		h.cache.InvalidateAll()
	}
}

// List answers GET /api/admin/profiles.
func (h *AdminProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles := []models.Profile{}
	if err := h.DB.WithContext(r.Context()).Preload("Permissions").Order("name").Find(&profiles).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}

// ListPermissions answers GET /api/admin/permissions.
func (h *AdminProfileHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions := []models.Permission{}
	if err := h.DB.WithContext(r.Context()).Order("resource_type, action").Find(&permissions).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissions)
}

func (h *AdminProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in ProfileInput
	if !h.decode(w, r, &in) || !h.valid(w, r, &in) {
		return
	}
	if h.nameTaken(w, r, in.Name, 0) {
		return
	}
	profile := models.Profile{Name: in.Name, Description: in.Description}
	if err := h.DB.WithContext(r.Context()).Create(&profile).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profile)
}

// Update renames a profile. System profiles keep their name.
func (h *AdminProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var in ProfileInput
	if !h.decode(w, r, &in) || !h.valid(w, r, &in) {
		return
	}
	if profile.IsSystem && in.Name != profile.Name {
		httpx.ValidationError(w, r, map[string]string{"name": "not_allowed"})
		return
	}
	if h.nameTaken(w, r, in.Name, profile.ID) {
		return
	}
	profile.Name = in.Name
	profile.Description = in.Description
	if err := h.DB.WithContext(r.Context()).Save(profile).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateAll()
	httpx.JSON(w, http.StatusOK, profile)
}

// Delete removes a custom profile nobody holds.
func (h *AdminProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	if profile.IsSystem {
		httpx.Error(w, r, http.StatusForbidden, "cannot_delete_system_profile", nil)
		return
	}
	var holders int64
	if err := h.DB.WithContext(r.Context()).Model(&models.User{}).Where("profile_id = ?", profile.ID).Count(&holders).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	if holders > 0 {
		httpx.Error(w, r, http.StatusConflict, "profile_has_users", nil)
		return
	}
	err := h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(profile).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(profile).Error
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateAll()
	httpx.NoContent(w)
}

// SetPermissions answers PUT /api/admin/profiles/{id}/permissions and
// replaces the profile's permission set.
func (h *AdminProfileHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var in permissionsInput
	if !h.decode(w, r, &in) {
		return
	}
	perms := make([]models.Permission, 0, len(in.Permissions))
	for _, code := range in.Permissions {
		resource, action, found := strings.Cut(code, ":")
		if !found || resource == "" || action == "" {
			httpx.ValidationError(w, r, map[string]string{"permissions": "invalid"})
			return
		}
		var perm models.Permission
		err := h.DB.WithContext(r.Context()).Where("resource_type = ? AND action = ?", resource, action).First(&perm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.ValidationError(w, r, map[string]string{"permissions": "not_allowed"})
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
		perms = append(perms, perm)
	}
	if err := h.DB.WithContext(r.Context()).Model(profile).Association("Permissions").Replace(perms); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateAll()
	profile.Permissions = perms
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *AdminProfileHandler) valid(w http.ResponseWriter, r *http.Request, in *ProfileInput) bool {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 100, v)
	validation.MaxLen("description", in.Description, 500, v)
	if !v.Empty() {
		httpx.ValidationError(w, r, v)
		return false
	}
	return true
}

func (h *AdminProfileHandler) nameTaken(w http.ResponseWriter, r *http.Request, name string, exceptID uint) bool {
	var n int64
	err := h.DB.WithContext(r.Context()).Unscoped().Model(&models.Profile{}).
		Where("name = ? AND id <> ?", name, exceptID).Count(&n).Error
	if err != nil {
		h.fail(w, r, err)
		return true
	}
	if n > 0 {
		httpx.Error(w, r, http.StatusConflict, "name_already_exists", nil)
		return true
	}
	return false
}

func (h *AdminProfileHandler) load(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	id, ok := h.id(w, r)
	if !ok {
		return nil, false
	}
	var profile models.Profile
	if err := h.DB.WithContext(r.Context()).First(&profile, id).Error; err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return &profile, true
}
