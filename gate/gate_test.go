package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/seo-backoffice/gate"
)

type ownedReport struct{ OwnerID uint }

func ownerPolicy() gate.Policy[uint] {
	return gate.PolicyFunc[uint](func(_ context.Context, userID uint, _ gate.Action, resource any) bool {
		r, ok := resource.(*ownedReport)
		return ok && r.OwnerID == userID
	})
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		held, requested gate.Permission
		want            bool
	}{
		{"*:*", "report:publish", true},
		{"report:publish", "report:publish", true},
		{"report:*", "report:generate", true},
		{"report:*", "template:view", false},
		{"*:view", "ticket:view", true},
		{"*:view", "ticket:delete", false},
		{"report:view", "report:list", false},
		{"garbage", "report:view", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.held)+"→"+string(tt.requested), func(t *testing.T) {
			if got := tt.held.Matches(tt.requested); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePermission(t *testing.T) {
	for code, ok := range map[string]bool{
		"template:set_default": true,
		"*:*":                  true,
		"template":             false,
		":view":                false,
		"a:b:c":                false,
	} {
		if _, got := gate.ParsePermission(code); got != ok {
			t.Errorf("ParsePermission(%q) ok = %v, want %v", code, got, ok)
		}
	}
	res, act := gate.NewPermission("template", gate.ActionSetDefault).Parse()
	if res != "template" || act != gate.ActionSetDefault {
		t.Errorf("Parse() = %q, %q", res, act)
	}
}

func TestStaticProfile(t *testing.T) {
	p := gate.NewStaticProfile(3, "viewer", "report:view", "report:view", "client:*")
	if len(p.Permissions()) != 2 {
		t.Errorf("duplicates kept: %v", p.Permissions())
	}
	if !p.HasPermission("client:delete") || p.HasPermission("report:publish") {
		t.Error("HasPermission mismatch")
	}
}

func TestHybridGate_Authorize(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	manager := gate.NewStaticProfile(1, "account_manager",
		gate.NewPermission("report", gate.ActionView),
		gate.NewPermission("report", gate.ActionGenerate),
	)
	resolver.Set(1, manager)
	resolver.Set(2, manager)

	g := gate.NewHybridGate[uint](resolver)
	g.Register("report", ownerPolicy())
	ctx := context.Background()
	mine := &ownedReport{OwnerID: 1}

	if err := g.Authorize(ctx, 1, gate.ActionGenerate, "report", nil); err != nil {
		t.Errorf("generate without resource: %v", err)
	}
	if err := g.Authorize(ctx, 1, gate.ActionView, "report", mine); err != nil {
		t.Errorf("owner view: %v", err)
	}
	if err := g.Authorize(ctx, 2, gate.ActionView, "report", mine); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("non-owner: err = %v, want ErrForbidden", err)
	}
	if err := g.Authorize(ctx, 1, gate.ActionPublish, "report", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("missing permission: err = %v, want ErrForbidden", err)
	}
	if err := g.Authorize(ctx, 9, gate.ActionView, "report", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("no profile: err = %v, want ErrUnauthorized", err)
	}
	if err := g.Authorize(ctx, 0, gate.ActionView, "report", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("zero user: err = %v, want ErrUnauthorized", err)
	}
	if !g.CanProfile(ctx, 2, gate.ActionView, "report") {
		t.Error("CanProfile ignores ownership")
	}
}

type failingResolver struct{ calls int }

func (f *failingResolver) Resolve(context.Context, uint) (gate.Profile, error) {
	f.calls++
	return nil, errors.New("db down")
}

func TestHybridGate_ResolverError(t *testing.T) {
	g := gate.NewHybridGate[uint](&failingResolver{})
	err := g.Authorize(context.Background(), 1, gate.ActionView, "client", nil)
	if !errors.Is(err, gate.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCachedResolver(t *testing.T) {
	inner := gate.NewStaticResolver[uint]()
	inner.Set(1, gate.NewStaticProfile(1, "viewer"))
	cached := gate.NewCachedResolver[uint](inner, time.Minute)
	ctx := context.Background()

	p, err := cached.Resolve(ctx, 1)
	if err != nil || p.Name() != "viewer" {
		t.Fatalf("Resolve() = %v, %v", p, err)
	}

	inner.Set(1, gate.NewStaticProfile(1, "admin"))
	if p, _ := cached.Resolve(ctx, 1); p.Name() != "viewer" {
		t.Errorf("expected cached viewer, got %s", p.Name())
	}

	cached.Invalidate(1)
	if p, _ := cached.Resolve(ctx, 1); p.Name() != "admin" {
		t.Errorf("after Invalidate got %s, want admin", p.Name())
	}

	cached.InvalidateAll()
	if cached.Len() != 0 {
		t.Errorf("Len() = %d after InvalidateAll", cached.Len())
	}
}

func TestCachedResolver_ExpiresAndSkipsErrors(t *testing.T) {
	inner := gate.NewStaticResolver[uint]()
	inner.Set(1, gate.NewStaticProfile(1, "viewer"))
	cached := gate.NewCachedResolver[uint](inner, time.Nanosecond)
	ctx := context.Background()

	_, _ = cached.Resolve(ctx, 1)
	time.Sleep(time.Millisecond)
	inner.Set(1, gate.NewStaticProfile(1, "admin"))
	if p, _ := cached.Resolve(ctx, 1); p.Name() != "admin" {
		t.Errorf("expired entry not refreshed: %s", p.Name())
	}

	failing := &failingResolver{}
	c2 := gate.NewCachedResolver[uint](failing, time.Minute)
	_, _ = c2.Resolve(ctx, 1)
	_, _ = c2.Resolve(ctx, 1)
	if failing.calls != 2 {
		t.Errorf("errors should not be cached, inner calls = %d", failing.calls)
	}
}
