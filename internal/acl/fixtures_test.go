package acl_test

import "github.com/serroba/acdocs/internal/model"

// fixture is a small dataset shared by the visibility tests:
//
//	finance (shared with g-fin), legal (shared with g-legal), private (shared with nobody)
//	d-fin in finance by alice, d-legal in legal by bob, d-private in private by carol,
//	d-orphan in a deleted category by bob.
type fixture struct {
	groups     []model.Group
	categories []model.Category
	documents  []model.Document
}

func newFixture() fixture {
	return fixture{
		groups: []model.Group{
			{ID: "g-fin", Name: "Finance", MemberIDs: []string{"alice", "mgr"}, CategoryIDs: []string{"finance"}},
			{ID: "g-legal", Name: "Legal", MemberIDs: []string{"bob"}, CategoryIDs: []string{"legal"}},
		},
		categories: []model.Category{
			{ID: "finance", Name: "Finance", SharedWithGroupIDs: []string{"g-fin"}},
			{ID: "legal", Name: "Legal", SharedWithGroupIDs: []string{"g-legal"}},
			{ID: "private", Name: "Private"},
		},
		documents: []model.Document{
			{ID: "d-fin", CategoryID: "finance", UploadedByID: "alice"},
			{ID: "d-legal", CategoryID: "legal", UploadedByID: "bob"},
			{ID: "d-private", CategoryID: "private", UploadedByID: "carol"},
			{ID: "d-orphan", CategoryID: "deleted", UploadedByID: "bob"},
		},
	}
}

func user(id string, role model.Role, groupIDs ...string) model.User {
	return model.User{ID: id, Role: role, GroupIDs: groupIDs}
}

func documentIDs(docs []model.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	return ids
}

func categoryIDs(cats []model.Category) []string {
	ids := make([]string, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.ID)
	}

	return ids
}
