package storage

import (
	"context"
	"fmt"

	"github.com/serroba/acdocs/internal/model"
)

// Snapshot is a point-in-time capture of the collections an authorization
// decision reads. Every decision made from one Snapshot sees the same data.
type Snapshot struct {
	Users      []model.User
	Groups     []model.Group
	Categories []model.Category
	Documents  []model.Document
}

// Snapshotter is implemented by stores that can read all collections atomically.
type Snapshotter interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// LoadSnapshot returns a Snapshot of store. Stores implementing Snapshotter
// provide an atomic view; others are read collection by collection.
func LoadSnapshot(ctx context.Context, store Store) (Snapshot, error) {
	if s, ok := store.(Snapshotter); ok {
		return s.Snapshot(ctx)
	}

	var (
		snap Snapshot
		err  error
	)

	if snap.Users, err = store.ListUsers(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("load users: %w", err)
	}

	if snap.Groups, err = store.ListGroups(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("load groups: %w", err)
	}

	if snap.Categories, err = store.ListCategories(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("load categories: %w", err)
	}

	if snap.Documents, err = store.ListDocuments(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("load documents: %w", err)
	}

	return snap, nil
}

// User returns the snapshot's user with the given ID.
func (s Snapshot) User(id string) (model.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}

	return model.User{}, false
}

// Document returns the snapshot's document with the given ID.
func (s Snapshot) Document(id string) (model.Document, bool) {
	for _, d := range s.Documents {
		if d.ID == id {
			return d, true
		}
	}

	return model.Document{}, false
}
