package acl

import "github.com/serroba/acdocs/internal/model"

// IsElevated reports whether role bypasses group and ownership scoping.
// Owner and admin see and modify every instance of every resource.
func IsElevated(role model.Role) bool {
	return role == model.RoleOwner || role == model.RoleAdmin
}
