package policy

import (
	"context"

	"github.com/diewo77/seo-backoffice/gate"
)

// Ownable is implemented by every tenant-owned model.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows access to resources owned by the subject. A nil
// resource (list, create) is left to the profile permissions; resources
// that are not Ownable are denied.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}
