package model

import (
	"errors"
	"fmt"
)

// ErrUnknownRole is returned when a role name is not one of the five known roles.
var ErrUnknownRole = errors.New("unknown role")

// Role is a user's authorization level.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
	RoleReader  Role = "reader"
)

// Roles returns every known role, most privileged first.
func Roles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleManager, RoleUser, RoleReader}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleUser, RoleReader:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ParseRole validates a role name coming from outside the process.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}

	return r, nil
}

// UnmarshalText rejects unknown roles at the decoding boundary.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// MarshalText returns the role name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r), nil
}
