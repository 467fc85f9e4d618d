package acl

import "errors"

// Common errors.
var (
	ErrAccessDenied        = errors.New("access denied")
	ErrMalformedPermission = errors.New("malformed permission")
	ErrInvalidMatrix       = errors.New("invalid permission matrix")
)
