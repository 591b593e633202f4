package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/models"
)

// AdminUserProfileHandler lists accounts and assigns their profile.
type AdminUserProfileHandler struct {
	base
	cache ProfileCache
}

func NewAdminUserProfileHandler(db *gorm.DB, log *zap.Logger, cache ProfileCache) *AdminUserProfileHandler {
	return &AdminUserProfileHandler{base: newBase(db, log, nil), cache: cache}
}

type assignInput struct {
	// ProfileID nil or 0 removes the profile.
	ProfileID *uint `json:"profile_id"`
}

// List answers GET /api/admin/users.
func (h *AdminUserProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	users := []models.User{}
	if err := h.DB.WithContext(r.Context()).Preload("Profile").Order("email").Find(&users).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

// AssignProfile answers PUT /api/admin/users/{id}/profile.
func (h *AdminUserProfileHandler) AssignProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.id(w, r)
	if !ok {
		return
	}
	var in assignInput
	if !h.decode(w, r, &in) {
		return
	}
	if in.ProfileID != nil && *in.ProfileID == 0 {
		in.ProfileID = nil
	}

	var user models.User
	if err := h.DB.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	if in.ProfileID != nil {
		var profile models.Profile
		if err := h.DB.WithContext(r.Context()).First(&profile, *in.ProfileID).Error; err != nil {
			httpx.ValidationError(w, r, map[string]string{"profile_id": "invalid"})
			return
		}
		user.Profile = &profile
	}

	if err := h.DB.WithContext(r.Context()).Model(&user).Update("profile_id", in.ProfileID).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	if h.cache != nil {
		h.cache.InvalidateUser(user.ID)
	}
	h.Log.Info("profile assigned", zap.Uint("user_id", user.ID), zap.Uintp("profile_id", in.ProfileID))
	user.ProfileID = in.ProfileID
	if in.ProfileID == nil {
		user.Profile = nil
	}
	httpx.JSON(w, http.StatusOK, user)
}
