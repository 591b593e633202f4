package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/auth"
	"github.com/diewo77/seo-backoffice/internal/db"
	"github.com/diewo77/seo-backoffice/internal/models"
)

func postJSON(t *testing.T, h http.HandlerFunc, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestAuthHandler_SignupLoginMe(t *testing.T) {
	conn := setupTestDB(t)
	sessions := auth.NewSessions("test-secret")
	h := NewAuthHandler(conn, zap.NewNop(), sessions)

	rr := postJSON(t, h.Signup, SignupInput{Email: "Boss@Agency.fr", Password: "correct horse", Name: "Boss", CompanyName: "Acme SEO"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decodeBody[models.User](t, rr)
	assert.Equal(t, "boss@agency.fr", first.Email)
	sessionCookie(t, rr)

	var stored models.User
	require.NoError(t, conn.Preload("Profile").First(&stored, first.ID).Error)
	assert.Equal(t, db.ProfileAdmin, stored.ProfileName())
	assert.NotEqual(t, "correct horse", stored.Password)

	var company models.CompanySettings
	require.NoError(t, conn.Where("user_id = ?", first.ID).First(&company).Error)
	assert.Equal(t, "Acme SEO", company.Name)

	var defaults int64
	require.NoError(t, conn.Model(&models.DocumentTemplate{}).Where("user_id = ? AND is_default = ?", first.ID, true).Count(&defaults).Error)
	assert.EqualValues(t, 4, defaults)

	rr = postJSON(t, h.Signup, SignupInput{Email: "second@agency.fr", Password: "another pass"})
	require.Equal(t, http.StatusCreated, rr.Code)
	second := decodeBody[models.User](t, rr)
	var storedSecond models.User
	require.NoError(t, conn.Preload("Profile").First(&storedSecond, second.ID).Error)
	assert.Equal(t, db.ProfileAccountManager, storedSecond.ProfileName())

	rr = postJSON(t, h.Signup, SignupInput{Email: "boss@agency.fr", Password: "whatever123"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = postJSON(t, h.Signup, SignupInput{Email: "x@agency.fr", Password: "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = postJSON(t, h.Login, LoginInput{Email: "boss@agency.fr", Password: "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = postJSON(t, h.Login, LoginInput{Email: "nobody@agency.fr", Password: "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = postJSON(t, h.Login, LoginInput{Email: " BOSS@agency.fr", Password: "correct horse"})
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(t, rr)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	sessions.Middleware(http.HandlerFunc(h.Me)).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decodeBody[struct {
		ID          uint     `json:"id"`
		Permissions []string `json:"permissions"`
	}](t, rr)
	assert.Equal(t, first.ID, got.ID)
	assert.Contains(t, got.Permissions, "*:*")

	rr = httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Negative(t, sessionCookie(t, rr).MaxAge)
}

type recordingCache struct {
	users []uint
	all   int
}

func (c *recordingCache) InvalidateUser(id uint) { c.users = append(c.users, id) }
func (c *recordingCache) InvalidateAll()         { c.all++ }

func adminMux(conn *gorm.DB, cache ProfileCache) *http.ServeMux {
	mux := http.NewServeMux()
	ph := NewAdminProfileHandler(conn, zap.NewNop(), cache)
	mux.HandleFunc("GET /api/admin/profiles", ph.List)
	mux.HandleFunc("POST /api/admin/profiles", ph.Create)
	mux.HandleFunc("PUT /api/admin/profiles/{id}", ph.Update)
	mux.HandleFunc("DELETE /api/admin/profiles/{id}", ph.Delete)
	mux.HandleFunc("PUT /api/admin/profiles/{id}/permissions", ph.SetPermissions)
	mux.HandleFunc("GET /api/admin/permissions", ph.ListPermissions)
	uh := NewAdminUserProfileHandler(conn, zap.NewNop(), cache)
	mux.HandleFunc("GET /api/admin/users", uh.List)
	mux.HandleFunc("PUT /api/admin/users/{id}/profile", uh.AssignProfile)
	return mux
}

func serveJSON(t *testing.T, mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var b []byte
	if body != nil {
		var err error
		b, err = json.Marshal(body)
		require.NoError(t, err)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(method, path, bytes.NewReader(b)))
	return rr
}

func TestAdminProfileHandler(t *testing.T) {
	conn := setupTestDB(t)
	cache := &recordingCache{}
	mux := adminMux(conn, cache)

	rr := serveJSON(t, mux, http.MethodPost, "/api/admin/profiles", ProfileInput{Name: "seo-analyst"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	p := decodeBody[models.Profile](t, rr)

	rr = serveJSON(t, mux, http.MethodPost, "/api/admin/profiles", ProfileInput{Name: "seo-analyst"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = serveJSON(t, mux, http.MethodPost, "/api/admin/profiles", ProfileInput{})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	path := "/api/admin/profiles/" + itoa(p.ID)
	rr = serveJSON(t, mux, http.MethodPut, path+"/permissions", map[string][]string{"permissions": {"report:view", "report:generate"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decodeBody[models.Profile](t, rr).Permissions, 2)
	assert.Equal(t, 1, cache.all)

	rr = serveJSON(t, mux, http.MethodPut, path+"/permissions", map[string][]string{"permissions": {"report:fly"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	admin, err := db.ProfileByName(conn, db.ProfileAdmin)
	require.NoError(t, err)
	rr = serveJSON(t, mux, http.MethodDelete, "/api/admin/profiles/"+itoa(admin.ID), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = serveJSON(t, mux, http.MethodPut, "/api/admin/profiles/"+itoa(admin.ID), ProfileInput{Name: "root"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	u := createUser(t, conn, "analyst@agency.fr")
	rr = serveJSON(t, mux, http.MethodPut, "/api/admin/users/"+itoa(u.ID)+"/profile", map[string]uint{"profile_id": p.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []uint{u.ID}, cache.users)

	rr = serveJSON(t, mux, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serveJSON(t, mux, http.MethodPut, "/api/admin/users/"+itoa(u.ID)+"/profile", map[string]any{"profile_id": nil})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = serveJSON(t, mux, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serveJSON(t, mux, http.MethodPut, "/api/admin/users/"+itoa(u.ID)+"/profile", map[string]uint{"profile_id": 9999})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = serveJSON(t, mux, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]models.User](t, rr), 1)
}
