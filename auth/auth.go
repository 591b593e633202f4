// Package auth issues and verifies HMAC-signed session cookies.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	CookieName = "session"
	DefaultTTL = 14 * 24 * time.Hour
)

// UserVerifier validates that a session's user still exists.
type UserVerifier func(ctx context.Context, uid uint) bool

// Sessions signs session cookies with a server-side secret.
type Sessions struct {
	secret   []byte
	ttl      time.Duration
	secure   bool
	verifier UserVerifier
	now      func() time.Time
}

type Option func(*Sessions)

func WithTTL(ttl time.Duration) Option { return func(s *Sessions) { s.ttl = ttl } }

// WithSecureCookies marks cookies Secure; enable behind TLS.
func WithSecureCookies(secure bool) Option { return func(s *Sessions) { s.secure = secure } }

// WithVerifier rejects sessions whose user fails v.
func WithVerifier(v UserVerifier) Option { return func(s *Sessions) { s.verifier = v } }

func withClock(now func() time.Time) Option { return func(s *Sessions) { s.now = now } }

func NewSessions(secret string, opts ...Option) *Sessions {
	s := &Sessions{secret: []byte(secret), ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sessions) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Create sets a cookie carrying "<uid>.<expiry>.<sig>".
func (s *Sessions) Create(w http.ResponseWriter, userID uint) {
	expires := s.now().Add(s.ttl)
	payload := strconv.FormatUint(uint64(userID), 10) + "." + strconv.FormatInt(expires.Unix(), 10)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    payload + "." + s.sign(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// Clear deletes the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session is the authenticated subject of one request.
type Session struct {
	UserID    uint
	ExpiresAt time.Time
}

// Parse validates the cookie and returns the user id.
func (s *Sessions) Parse(r *http.Request) (uint, bool) {
	sess, ok := s.session(r)
	return sess.UserID, ok
}

func (s *Sessions) session(r *http.Request) (Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Session{}, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 3 {
		return Session{}, false
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(s.sign(payload))) {
		return Session{}, false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || s.now().Unix() >= exp {
		return Session{}, false
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id == 0 {
		return Session{}, false
	}
	return Session{UserID: uint(id), ExpiresAt: time.Unix(exp, 0)}, true
}

// Middleware attaches the user id to the request context when the cookie
// is valid and the verifier, if any, accepts the user. Stale cookies are
// cleared.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(r)
		if ok && s.verifier != nil && !s.verifier(r.Context(), sess.UserID) {
			s.Clear(w)
			ok = false
		}
		if ok {
			r = r.WithContext(WithSession(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

// WithSession stores the request session.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the request session, if any.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(Session)
	return sess, ok && sess.UserID != 0
}

// WithUserID stores a session for userID without expiry. Used by tests and
// operator commands.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return WithSession(ctx, Session{UserID: userID})
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	sess, ok := FromContext(ctx)
	return sess.UserID, ok
}

// MinPasswordLen is enforced on signup and password changes.
const MinPasswordLen = 8

var ErrPasswordTooShort = errors.New("password too short")

// HashPassword bcrypt-hashes a plaintext password.
func HashPassword(plain string) (string, error) {
	if len(plain) < MinPasswordLen {
		return "", ErrPasswordTooShort
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether plain matches hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
