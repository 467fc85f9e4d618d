// Package session authenticates users and tracks who is signed in.
package session

import (
	"slices"
	"time"

	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/model"
)

// Session is a signed-in user. A nil *Session is a signed-out visitor and
// holds no permissions.
type Session struct {
	token     string
	user      model.User
	checker   *acl.Checker
	createdAt time.Time
	expiresAt time.Time
}

// Token returns the opaque bearer token identifying the session.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}

	return s.token
}

// User returns the signed-in user.
func (s *Session) User() model.User {
	if s == nil {
		return model.User{}
	}

	return s.user
}

// CreatedAt returns when the user signed in.
func (s *Session) CreatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}

	return s.createdAt
}

// Can reports whether the user's role holds permission.
func (s *Session) Can(permission string) bool {
	if s == nil {
		return false
	}

	return s.checker.HasPermission(s.user.Role, permission)
}

// IsRole reports whether the user has one of roles.
func (s *Session) IsRole(roles ...model.Role) bool {
	if s == nil {
		return false
	}

	return slices.Contains(roles, s.user.Role)
}

func (s *Session) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}
