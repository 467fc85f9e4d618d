package acl

import (
	"fmt"
	"strings"
)

// Wildcard grants every permission when held alone, or every action on a
// resource when used in the action position.
const Wildcard = "*"

// Resources that permissions refer to.
const (
	ResourceCategories = "categories"
	ResourceDocuments  = "documents"
	ResourceGroups     = "groups"
	ResourceUsers      = "users"
	ResourceAudit      = "audit"
)

// Actions that permissions grant.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// QualifierOwn restricts a permission to resources the user uploaded.
const QualifierOwn = "own"

// Permission is a parsed resource:action[:qualifier] token.
// The zero Resource with Action "" is never produced by ParsePermission.
type Permission struct {
	Resource  string
	Action    string
	Qualifier string
}

// All is the permission that grants everything.
var All = Permission{Resource: Wildcard}

// NewPermission builds an unqualified permission.
func NewPermission(resource, action string) Permission {
	return Permission{Resource: resource, Action: action}
}

// Own returns p restricted to the caller's own resources.
func (p Permission) Own() Permission {
	p.Qualifier = QualifierOwn

	return p
}

// IsAll reports whether p is the bare "*" permission.
func (p Permission) IsAll() bool {
	return p.Resource == Wildcard && p.Action == ""
}

// String returns the colon-separated form of the permission.
func (p Permission) String() string {
	if p.IsAll() {
		return Wildcard
	}

	s := p.Resource + ":" + p.Action
	if p.Qualifier != "" {
		s += ":" + p.Qualifier
	}

	return s
}

// ParsePermission parses "*", "resource:action" or "resource:action:qualifier".
func ParsePermission(s string) (Permission, error) {
	if s == Wildcard {
		return All, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Permission{}, fmt.Errorf("%w: %q", ErrMalformedPermission, s)
	}

	for _, part := range parts {
		if part == "" {
			return Permission{}, fmt.Errorf("%w: %q", ErrMalformedPermission, s)
		}
	}

	p := Permission{Resource: parts[0], Action: parts[1]}
	if len(parts) == 3 {
		p.Qualifier = parts[2]
	}

	return p, nil
}

// MustParsePermission is like ParsePermission but panics on malformed input.
// It is meant for static tables built at startup.
func MustParsePermission(s string) Permission {
	p, err := ParsePermission(s)
	if err != nil {
		panic(err)
	}

	return p
}

// resourceOf returns everything before the first colon.
func resourceOf(permission string) string {
	resource, _, _ := strings.Cut(permission, ":")

	return resource
}
