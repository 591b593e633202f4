package gate

import "strings"

// Permission is "resource:action", e.g. "template:set_default".
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// ParsePermission validates a "resource:action" code.
func ParsePermission(code string) (Permission, bool) {
	res, act, ok := strings.Cut(code, ":")
	if !ok || res == "" || act == "" || strings.Contains(act, ":") {
		return "", false
	}
	return Permission(code), true
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches reports whether p grants requested. "*:*" grants everything,
// "report:*" every report action and "*:view" viewing any resource.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	resOK := res == reqRes || res == WildcardAll
	actOK := act == reqAct || string(act) == WildcardAll
	return resOK && actOK
}
