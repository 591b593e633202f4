// Package gate is a profile and permission authorization layer.
//
// A user resolves to one Profile, a set of "resource:action" permissions
// with wildcard support. HybridGate checks that permission first, then an
// optional per-resource Policy (typically ownership) once the resource is
// loaded. The package knows nothing about the domain models.
//
// U is the subject type: uint for user IDs, or a claims struct.
package gate

import "context"

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// ActionTransition moves a record along its status workflow.
	ActionTransition Action = "transition"
	// ActionExport renders a record to PDF.
	ActionExport     Action = "export"
	ActionSetDefault Action = "set_default"
	ActionGenerate   Action = "generate"
	ActionPublish    Action = "publish"
	ActionFinalize   Action = "finalize"
)

// Policy holds resource-specific rules, checked after the profile
// permission. For list and create, resource is nil.
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

// Can calls f.
func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}
