package gate

import (
	"context"
	"fmt"
)

// HybridGate combines profile permissions with resource policies:
//  1. the subject must be non-zero and resolve to a profile,
//  2. the profile must grant resource:action,
//  3. when a resource is given and a policy is registered for its type,
//     the policy must allow it.
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// NewHybridGate creates a gate over resolver.
func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register sets the policy for resourceType, replacing any previous one.
func (g *HybridGate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Profile resolves the subject's profile. ErrUnauthorized when there is
// none.
func (g *HybridGate[U]) Profile(ctx context.Context, user U) (Profile, error) {
	var zero U
	if user == zero {
		return nil, ErrUnauthorized
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve profile: %v", ErrUnauthorized, err)
	}
	if profile == nil {
		return nil, ErrUnauthorized
	}
	return profile, nil
}

// Authorize returns nil when user may perform action on resource,
// ErrUnauthorized when the subject is unknown and ErrForbidden otherwise.
func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	profile, err := g.Profile(ctx, user)
	if err != nil {
		return err
	}
	if !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrForbidden
	}
	if resource != nil {
		if policy, ok := g.policies[resourceType]; ok && !policy.Can(ctx, user, action, resource) {
			return ErrForbidden
		}
	}
	return nil
}

// Can is Authorize as a bool.
func (g *HybridGate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile checks the profile permission only, before any resource is
// loaded.
func (g *HybridGate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	profile, err := g.Profile(ctx, user)
	if err != nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}
