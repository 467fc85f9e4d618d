package storage

import (
	"context"
	"errors"

	"github.com/serroba/acdocs/internal/model"
)

// Common errors.
var (
	ErrNotFound       = errors.New("record not found")
	ErrAlreadyExists  = errors.New("record already exists")
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrResetUnsupported is returned when a store cannot drop its records.
	ErrResetUnsupported = errors.New("store cannot be reset")
)

// Resetter is implemented by stores that can remove every record.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Store defines the interface for persisting the application's records.
// Implementations guarantee per-call atomicity only; callers needing a
// consistent view across collections use LoadSnapshot.
//
// Create methods assign an ID when the record has none and set CreatedAt when
// it is zero. Update methods replace the whole record and return ErrNotFound
// if it does not exist.
type Store interface {
	UserStore
	GroupStore
	CategoryStore
	DocumentStore
	AuditStore
}

// UserStore persists users. Email is a unique secondary key.
type UserStore interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	// GetUserByEmail returns ErrNotFound if no user has the address.
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	// CreateUser returns ErrDuplicateEmail if the address is taken.
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	UpdateUser(ctx context.Context, user model.User) (model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// GroupStore persists groups.
type GroupStore interface {
	ListGroups(ctx context.Context) ([]model.Group, error)
	GetGroup(ctx context.Context, id string) (model.Group, error)
	CreateGroup(ctx context.Context, group model.Group) (model.Group, error)
	UpdateGroup(ctx context.Context, group model.Group) (model.Group, error)
	DeleteGroup(ctx context.Context, id string) error
}

// CategoryStore persists categories.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id string) (model.Category, error)
	CreateCategory(ctx context.Context, category model.Category) (model.Category, error)
	UpdateCategory(ctx context.Context, category model.Category) (model.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// DocumentStore persists documents. Category is a secondary key.
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]model.Document, error)
	ListDocumentsByCategory(ctx context.Context, categoryID string) ([]model.Document, error)
	GetDocument(ctx context.Context, id string) (model.Document, error)
	CreateDocument(ctx context.Context, document model.Document) (model.Document, error)
	// UpdateDocument also bumps UpdatedAt.
	UpdateDocument(ctx context.Context, document model.Document) (model.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// AuditStore persists the append-only audit trail.
type AuditStore interface {
	// ListAuditLogs returns entries newest first.
	ListAuditLogs(ctx context.Context) ([]model.AuditLog, error)
	AppendAuditLog(ctx context.Context, entry model.AuditLog) (model.AuditLog, error)
}
