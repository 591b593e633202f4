package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, s *Sessions, uid uint) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	s.Create(w, uid)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessions_RoundTrip(t *testing.T) {
	s := NewSessions("0123456789abcdef0123456789abcdef")
	c := issue(t, s, 7)
	assert.True(t, c.HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	uid, ok := s.Parse(r)
	require.True(t, ok)
	assert.EqualValues(t, 7, uid)
}

func TestSessions_Rejects(t *testing.T) {
	s := NewSessions("secret-a")
	c := issue(t, s, 7)

	other := NewSessions("secret-b")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	_, ok := other.Parse(r)
	assert.False(t, ok, "foreign secret")

	tampered := *c
	tampered.Value = "8" + strings.TrimPrefix(c.Value, "7")
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&tampered)
	_, ok = s.Parse(r)
	assert.False(t, ok, "tampered uid")

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok = s.Parse(r)
	assert.False(t, ok, "no cookie")
}

func TestSessions_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessions("secret", WithTTL(time.Hour), withClock(func() time.Time { return now }))
	c := issue(t, s, 3)

	now = now.Add(2 * time.Hour)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	_, ok := s.Parse(r)
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	var seen uint
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	})

	s := NewSessions("secret", WithVerifier(func(_ context.Context, uid uint) bool { return uid == 1 }))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(issue(t, s, 1))
	s.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)
	assert.EqualValues(t, 1, seen)

	seen = 0
	w := httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(issue(t, s, 2))
	s.Middleware(next).ServeHTTP(w, r)
	assert.Zero(t, seen)
	require.Len(t, w.Result().Cookies(), 1)
	assert.Equal(t, -1, w.Result().Cookies()[0].MaxAge)
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "correct horse"))
	assert.False(t, CheckPassword(h, "wrong horse!"))
}
