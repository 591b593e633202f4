package gate

import "errors"

// Sentinel errors returned by HybridGate.Authorize.
var (
	// ErrUnauthorized: no authenticated subject or no profile.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden: the profile lacks the permission or a policy denied it.
	ErrForbidden = errors.New("forbidden")
)
