package acl

import (
	"fmt"

	"github.com/serroba/acdocs/internal/model"
)

// Checker evaluates role permissions against a Matrix.
// It does not know about ownership: "documents:update:own" is a distinct token
// from "documents:update" and neither implies the other. A "documents:*" grant
// matches both. Ownership-aware decisions belong to CanModifyDocument.
type Checker struct {
	matrix *Matrix
}

// NewChecker creates a new permission checker.
func NewChecker(matrix *Matrix) *Checker {
	return &Checker{matrix: matrix}
}

// Matrix returns the matrix the checker evaluates against.
func (c *Checker) Matrix() *Matrix {
	return c.matrix
}

// HasPermission reports whether role holds permission.
// The first matching rule wins: "*", then the exact token, then "resource:*".
// Tokens that match nothing, malformed ones included, are denied.
func (c *Checker) HasPermission(role model.Role, permission string) bool {
	if c.matrix.holds(role, Wildcard) {
		return true
	}

	if c.matrix.holds(role, permission) {
		return true
	}

	return c.matrix.holds(role, resourceOf(permission)+":"+Wildcard)
}

// Has is the typed form of HasPermission.
func (c *Checker) Has(role model.Role, p Permission) bool {
	return c.HasPermission(role, p.String())
}

// RequirePermission returns an error wrapping ErrAccessDenied if role lacks
// permission.
func (c *Checker) RequirePermission(role model.Role, permission string) error {
	if !c.HasPermission(role, permission) {
		return fmt.Errorf("%w: %s lacks %s", ErrAccessDenied, role, permission)
	}

	return nil
}
