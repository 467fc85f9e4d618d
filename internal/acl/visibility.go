package acl

import (
	"slices"

	"github.com/serroba/acdocs/internal/model"
)

// CanAccessCategory reports whether user may see category.
// Elevated roles see every category. Everyone else needs at least one of their
// groups in the category's shared list; a category shared with nobody is
// invisible to them. The group list of the snapshot is accepted for symmetry
// with CanAccessDocument; membership is read from the user's group ids.
func CanAccessCategory(user model.User, category model.Category, _ []model.Group) bool {
	if IsElevated(user.Role) {
		return true
	}

	return slices.ContainsFunc(category.SharedWithGroupIDs, user.InGroup)
}

// CanAccessDocument reports whether user may see document.
// The uploader always sees their own documents. Otherwise visibility follows
// the owning category; a document whose category is missing from categories
// is denied.
func CanAccessDocument(user model.User, document model.Document, categories []model.Category, groups []model.Group) bool {
	if IsElevated(user.Role) {
		return true
	}

	if document.UploadedByID == user.ID {
		return true
	}

	i := slices.IndexFunc(categories, func(c model.Category) bool {
		return c.ID == document.CategoryID
	})
	if i < 0 {
		return false
	}

	return CanAccessCategory(user, categories[i], groups)
}
