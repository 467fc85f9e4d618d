package acl

import (
	"fmt"
	"slices"

	"github.com/serroba/acdocs/internal/model"
)

// Matrix maps every role to the permissions it holds.
// It is built once at startup and never mutated afterwards.
type Matrix struct {
	grants map[model.Role]map[string]struct{}
	// ordered keeps the configured order for Permissions.
	ordered map[model.Role][]string
}

// NewMatrix validates table and builds a Matrix from it.
// Every role must be present with at least one permission, every entry must
// parse, and the owner role must hold exactly "*".
func NewMatrix(table map[model.Role][]string) (*Matrix, error) {
	m := &Matrix{
		grants:  make(map[model.Role]map[string]struct{}, len(table)),
		ordered: make(map[model.Role][]string, len(table)),
	}

	for role := range table {
		if !role.Valid() {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidMatrix, model.ErrUnknownRole, role)
		}
	}

	for _, role := range model.Roles() {
		perms, ok := table[role]
		if !ok || len(perms) == 0 {
			return nil, fmt.Errorf("%w: role %q has no permissions", ErrInvalidMatrix, role)
		}

		set := make(map[string]struct{}, len(perms))

		for _, perm := range perms {
			if _, err := ParsePermission(perm); err != nil {
				return nil, fmt.Errorf("%w: role %q: %w", ErrInvalidMatrix, role, err)
			}

			set[perm] = struct{}{}
		}

		m.grants[role] = set
		m.ordered[role] = slices.Clone(perms)
	}

	if owner := m.ordered[model.RoleOwner]; len(owner) != 1 || owner[0] != Wildcard {
		return nil, fmt.Errorf("%w: owner must hold exactly %q", ErrInvalidMatrix, Wildcard)
	}

	return m, nil
}

// DefaultMatrix returns the built-in permission table.
func DefaultMatrix() *Matrix {
	m, err := NewMatrix(DefaultGrants())
	if err != nil {
		panic(err)
	}

	return m
}

// DefaultGrants returns the raw built-in table. Callers get a fresh copy.
func DefaultGrants() map[model.Role][]string {
	return map[model.Role][]string{
		model.RoleOwner: {Wildcard},
		model.RoleAdmin: {
			"categories:create",
			"categories:read",
			"categories:update",
			"categories:delete",
			"documents:create",
			"documents:read",
			"documents:update",
			"documents:delete",
			"groups:create",
			"groups:read",
			"groups:update",
			"groups:delete",
			"users:create",
			"users:read",
			"users:update",
			"users:delete",
			"audit:read",
		},
		model.RoleManager: {
			"categories:create",
			"categories:read",
			"categories:update",
			"documents:create",
			"documents:read",
			"documents:update",
			"documents:delete",
			"groups:read",
			"groups:update",
			"audit:read",
		},
		model.RoleUser: {
			"documents:create",
			"documents:read",
			"documents:update:own",
			"documents:delete:own",
		},
		model.RoleReader: {
			"documents:read",
		},
	}
}

// Permissions returns a copy of the permissions held by role, in configured order.
func (m *Matrix) Permissions(role model.Role) []string {
	return slices.Clone(m.ordered[role])
}

// holds reports whether role's set contains the exact token.
func (m *Matrix) holds(role model.Role, token string) bool {
	_, ok := m.grants[role][token]

	return ok
}
