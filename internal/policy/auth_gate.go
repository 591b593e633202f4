// Package policy wires the gate package to the database and to HTTP
// middleware.
package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/auth"
	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/httpx"
)

// Resources guarded by the gate. Each one has an ownership policy.
var Resources = []string{
	"client", "invoice", "contract", "proposal", "report",
	"ticket", "template", "metric", "company",
}

// AuthGate is the central authorization point: a HybridGate over cached
// database profiles.
type AuthGate struct {
	Gate          *gate.HybridGate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate caches profiles for cacheTTL and registers the ownership
// policy for every tenant resource.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	return NewAuthGateWithResolver(NewDBProfileResolver(db), cacheTTL)
}

// NewAuthGateWithResolver builds the gate over any resolver.
func NewAuthGateWithResolver(resolver gate.ProfileResolver[uint], cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](resolver, cacheTTL)
	ag := &AuthGate{Gate: gate.NewHybridGate[uint](cached), CacheResolver: cached}
	ownership := NewOwnershipPolicy()
	for _, res := range Resources {
		ag.RegisterPolicy(res, ownership)
	}
	return ag
}

// RegisterPolicy adds or replaces the policy for a resource type.
func (ag *AuthGate) RegisterPolicy(resourceType string, p gate.Policy[uint]) {
	ag.Gate.Register(resourceType, p)
}

// Authorize checks the request user against action on resource.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// CanProfile checks only profile permissions, before a resource is loaded.
func (ag *AuthGate) CanProfile(ctx context.Context, action gate.Action, resourceType string) bool {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return false
	}
	return ag.Gate.CanProfile(ctx, userID, action, resourceType)
}

// InvalidateUser drops the cached profile of userID. Call it when the
// user's profile assignment changes.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}

// InvalidateAll clears the profile cache. Call it when profile permissions
// change.
func (ag *AuthGate) InvalidateAll() {
	ag.CacheResolver.InvalidateAll()
}

// WriteError answers 401 or 403 for a gate error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, gate.ErrUnauthorized) {
		if _, ok := auth.UserIDFromContext(r.Context()); !ok {
			httpx.Error(w, r, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
	}
	httpx.Error(w, r, http.StatusForbidden, "forbidden", nil)
}

// RequireAuth answers 401 when the request has no session.
func (ag *AuthGate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserIDFromContext(r.Context()); !ok {
			httpx.Error(w, r, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission answers 401 without a session and 403 when the profile
// lacks resourceType:action.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.Error(w, r, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !ag.Gate.CanProfile(r.Context(), userID, action, resourceType) {
				httpx.Error(w, r, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets "*:*" profiles through.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.Error(w, r, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			profile, err := ag.Gate.Profile(r.Context(), userID)
			if err != nil || !profile.HasPermission(gate.PermissionSuperAdmin) {
				httpx.Error(w, r, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
