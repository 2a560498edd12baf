package keys

import "aigated/pkg/types"

// authError signals a missing, invalid or revoked key for 401 mapping.
type authError struct{ reason string }

func (e authError) Error() string { return "authentication failed: " + e.reason }

// IsAuthError reports whether err indicates failed authentication.
func IsAuthError(err error) bool {
	_, ok := err.(authError)
	return ok
}

// permissionDeniedError signals a key lacking a capability for 403 mapping.
type permissionDeniedError struct{ capability types.Capability }

func (e permissionDeniedError) Error() string {
	return "permission denied: key lacks capability " + string(e.capability)
}

// IsPermissionDenied reports whether err indicates a missing capability.
func IsPermissionDenied(err error) bool {
	_, ok := err.(permissionDeniedError)
	return ok
}

// notFoundError signals an unknown record id in admin operations.
type notFoundError struct{ id string }

func (e notFoundError) Error() string { return "key not found: " + e.id }

// IsNotFound reports whether err indicates an unknown key record.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// duplicateError signals a digest collision on insert. The store enforces
// one record per digest.
type duplicateError struct{}

func (duplicateError) Error() string { return "key digest already exists" }

// IsDuplicate reports whether err indicates a digest uniqueness violation.
func IsDuplicate(err error) bool {
	_, ok := err.(duplicateError)
	return ok
}
