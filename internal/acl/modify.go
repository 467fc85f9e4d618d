package acl

import "github.com/serroba/acdocs/internal/model"

// CanModifyDocument reports whether user may update or delete document.
// It does not imply visibility: callers must first find document in the
// user's accessible set.
//
// Managers may modify any document. This is broader than their visibility
// scope and is kept as is pending a product decision.
func CanModifyDocument(user model.User, document model.Document) bool {
	switch {
	case IsElevated(user.Role):
		return true
	case user.Role == model.RoleManager:
		return true
	case user.Role == model.RoleUser:
		return document.UploadedByID == user.ID
	default:
		return false
	}
}
