package model

import "slices"

// Clone returns a copy of u that shares no slices or pointers with it.
func (u User) Clone() User {
	u.GroupIDs = slices.Clone(u.GroupIDs)

	if u.NotificationPreferences != nil {
		prefs := *u.NotificationPreferences
		prefs.AlertDaysBefore = slices.Clone(prefs.AlertDaysBefore)
		u.NotificationPreferences = &prefs
	}

	return u
}

// Clone returns a copy of g that shares no slices with it.
func (g Group) Clone() Group {
	g.MemberIDs = slices.Clone(g.MemberIDs)
	g.CategoryIDs = slices.Clone(g.CategoryIDs)

	return g
}

// Clone returns a copy of c that shares no slices or pointers with it.
func (c Category) Clone() Category {
	if c.ParentID != nil {
		parent := *c.ParentID
		c.ParentID = &parent
	}

	c.DocumentTypes = slices.Clone(c.DocumentTypes)
	c.SharedWithGroupIDs = slices.Clone(c.SharedWithGroupIDs)

	return c
}

// Clone returns a copy of d that shares no slices or pointers with it.
func (d Document) Clone() Document {
	if d.ExpiresAt != nil {
		expires := *d.ExpiresAt
		d.ExpiresAt = &expires
	}

	d.Versions = slices.Clone(d.Versions)

	return d
}

// Clone returns a copy of l.
func (l AuditLog) Clone() AuditLog {
	return l
}
