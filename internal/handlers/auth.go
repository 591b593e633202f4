package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/auth"
	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/db"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/validation"
)

type AuthHandler struct {
	base
	sessions *auth.Sessions
}

func NewAuthHandler(conn *gorm.DB, log *zap.Logger, sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{base: newBase(conn, log, nil), sessions: sessions}
}

type SignupInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// me is the session user as the SPA sees it.
type me struct {
	*models.User
	Permissions []string `json:"permissions"`
}

// Signup answers POST /api/auth/signup. The first account becomes admin,
// later ones account managers. Each account starts with the default
// template set.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in SignupInput
	if !h.decode(w, r, &in) {
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("password", in.Password, v)
	if len(in.Password) < auth.MinPasswordLen {
		v.Add("password", "too_short")
	}
	validation.MaxLen("name", in.Name, 255, v)
	if !v.Empty() {
		httpx.ValidationError(w, r, v)
		return
	}

	ctx := r.Context()
	var taken int64
	if err := h.DB.WithContext(ctx).Unscoped().Model(&models.User{}).Where("email = ?", in.Email).Count(&taken).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	if taken > 0 {
		httpx.Error(w, r, http.StatusConflict, "email_taken", nil)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user := models.User{Email: in.Email, Name: in.Name, Password: hash}
	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&models.User{}).Count(&users).Error; err != nil {
			return err
		}
		profileName := db.ProfileAccountManager
		if users == 0 {
			profileName = db.ProfileAdmin
		}
		profile, err := db.ProfileByName(tx, profileName)
		if err != nil {
			return err
		}
		user.ProfileID = &profile.ID
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		company := in.CompanyName
		if company == "" {
			company = in.Name
		}
		if company != "" {
			if err := tx.Create(&models.CompanySettings{UserID: user.ID, Name: company, Email: in.Email}).Error; err != nil {
				return err
			}
		}
		return db.SeedTemplates(tx, user.ID)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.Log.Info("account created", zap.Uint("user_id", user.ID))
	h.sessions.Create(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

// Login answers POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if !h.decode(w, r, &in) {
		return
	}
	var user models.User
	err := h.DB.WithContext(r.Context()).Where("email = ?", strings.ToLower(strings.TrimSpace(in.Email))).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.fail(w, r, err)
			return
		}
		httpx.Error(w, r, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		httpx.Error(w, r, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	h.sessions.Create(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

// Logout answers POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	httpx.NoContent(w)
}

// Me answers GET /api/auth/me with the user, its profile and permission
// codes.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var user models.User
	if err := h.DB.WithContext(r.Context()).Preload("Profile.Permissions").First(&user, userID).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	out := me{User: &user, Permissions: []string{}}
	if user.Profile != nil {
		out.Permissions = user.Profile.PermissionCodes()
	}
	httpx.JSON(w, http.StatusOK, out)
}
