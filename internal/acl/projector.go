package acl

import "github.com/serroba/acdocs/internal/model"

// AccessibleCategories returns the categories user may see, in input order.
// Elevated roles get the input back unchanged.
func AccessibleCategories(user model.User, categories []model.Category, groups []model.Group) []model.Category {
	if IsElevated(user.Role) {
		return categories
	}

	return filter(categories, func(c model.Category) bool {
		return CanAccessCategory(user, c, groups)
	})
}

// AccessibleDocuments returns the documents user may see, in input order.
// Documents inherit visibility from their category unless user uploaded them.
func AccessibleDocuments(
	user model.User, documents []model.Document, categories []model.Category, groups []model.Group,
) []model.Document {
	if IsElevated(user.Role) {
		return documents
	}

	return filter(documents, func(d model.Document) bool {
		return CanAccessDocument(user, d, categories, groups)
	})
}

// AccessibleGroups returns the groups user may see. Non-elevated users see
// exactly the groups that list them as a member.
func AccessibleGroups(user model.User, groups []model.Group) []model.Group {
	if IsElevated(user.Role) {
		return groups
	}

	return filter(groups, func(g model.Group) bool {
		return g.HasMember(user.ID)
	})
}

// AccessibleAuditLogs returns the audit entries user may see. Holders of
// "audit:read" see the whole trail; anyone else only their own entries.
func AccessibleAuditLogs(checker *Checker, user model.User, logs []model.AuditLog) []model.AuditLog {
	if checker.Has(user.Role, NewPermission(ResourceAudit, ActionRead)) {
		return logs
	}

	return filter(logs, func(l model.AuditLog) bool {
		return l.UserID == user.ID
	})
}

// AccessibleUsers returns the user records user may see. Holders of
// "users:read" see everyone; anyone else only themselves.
func AccessibleUsers(checker *Checker, user model.User, users []model.User) []model.User {
	if checker.Has(user.Role, NewPermission(ResourceUsers, ActionRead)) {
		return users
	}

	return filter(users, func(u model.User) bool {
		return u.ID == user.ID
	})
}

// filter keeps the elements for which keep returns true, preserving order.
func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))

	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}

	return out
}
