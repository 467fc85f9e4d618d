package storage

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/serroba/acdocs/internal/model"
)

// table holds one collection in insertion order.
type table[T any] struct {
	rows  map[string]T
	order []string
	clone func(T) T
}

func newTable[T any](clone func(T) T) *table[T] {
	return &table[T]{
		rows:  make(map[string]T),
		clone: clone,
	}
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.clone(t.rows[id]))
	}

	return out
}

func (t *table[T]) get(id string) (T, error) {
	v, ok := t.rows[id]
	if !ok {
		var zero T

		return zero, ErrNotFound
	}

	return t.clone(v), nil
}

func (t *table[T]) insert(id string, v T) error {
	if _, exists := t.rows[id]; exists {
		return ErrAlreadyExists
	}

	t.rows[id] = t.clone(v)
	t.order = append(t.order, id)

	return nil
}

func (t *table[T]) replace(id string, v T) error {
	if _, exists := t.rows[id]; !exists {
		return ErrNotFound
	}

	t.rows[id] = t.clone(v)

	return nil
}

func (t *table[T]) remove(id string) error {
	if _, exists := t.rows[id]; !exists {
		return ErrNotFound
	}

	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == id })

	return nil
}

func (t *table[T]) clear() {
	t.rows = make(map[string]T)
	t.order = nil
}

// MemoryStore is an in-memory implementation of the Store interface.
// Useful for testing and development.
type MemoryStore struct {
	opts options

	mu         sync.RWMutex
	users      *table[model.User]
	groups     *table[model.Group]
	categories *table[model.Category]
	documents  *table[model.Document]
	auditLogs  *table[model.AuditLog]
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:       buildOptions(opts),
		users:      newTable(model.User.Clone),
		groups:     newTable(model.Group.Clone),
		categories: newTable(model.Category.Clone),
		documents:  newTable(model.Document.Clone),
		auditLogs:  newTable(model.AuditLog.Clone),
	}
}

// ListUsers returns all users in insertion order.
func (m *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.users.list(), nil
}

// GetUser returns the user with the given ID.
func (m *MemoryStore) GetUser(_ context.Context, id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.users.get(id)
}

// GetUserByEmail looks a user up by email, case-insensitively.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.users.order {
		if u := m.users.rows[id]; strings.EqualFold(u.Email, email) {
			return u.Clone(), nil
		}
	}

	return model.User{}, ErrNotFound
}

// CreateUser adds a new user.
func (m *MemoryStore) CreateUser(_ context.Context, user model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTaken(user.Email, "") {
		return model.User{}, ErrDuplicateEmail
	}

	m.stamp(&user.ID, &user.CreatedAt)

	if err := m.users.insert(user.ID, user); err != nil {
		return model.User{}, err
	}

	return user.Clone(), nil
}

// UpdateUser replaces an existing user.
func (m *MemoryStore) UpdateUser(_ context.Context, user model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTaken(user.Email, user.ID) {
		return model.User{}, ErrDuplicateEmail
	}

	if err := m.users.replace(user.ID, user); err != nil {
		return model.User{}, err
	}

	return user.Clone(), nil
}

// DeleteUser removes a user.
func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.users.remove(id)
}

// emailTaken must be called with the lock held.
func (m *MemoryStore) emailTaken(email, exceptID string) bool {
	for id, u := range m.users.rows {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}

	return false
}

// ListGroups returns all groups in insertion order.
func (m *MemoryStore) ListGroups(_ context.Context) ([]model.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.groups.list(), nil
}

// GetGroup returns the group with the given ID.
func (m *MemoryStore) GetGroup(_ context.Context, id string) (model.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.groups.get(id)
}

// CreateGroup adds a new group.
func (m *MemoryStore) CreateGroup(_ context.Context, group model.Group) (model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stamp(&group.ID, &group.CreatedAt)

	if err := m.groups.insert(group.ID, group); err != nil {
		return model.Group{}, err
	}

	return group.Clone(), nil
}

// UpdateGroup replaces an existing group.
func (m *MemoryStore) UpdateGroup(_ context.Context, group model.Group) (model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.groups.replace(group.ID, group); err != nil {
		return model.Group{}, err
	}

	return group.Clone(), nil
}

// DeleteGroup removes a group.
func (m *MemoryStore) DeleteGroup(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.groups.remove(id)
}

// ListCategories returns all categories in insertion order.
func (m *MemoryStore) ListCategories(_ context.Context) ([]model.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.categories.list(), nil
}

// GetCategory returns the category with the given ID.
func (m *MemoryStore) GetCategory(_ context.Context, id string) (model.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.categories.get(id)
}

// CreateCategory adds a new category.
func (m *MemoryStore) CreateCategory(_ context.Context, category model.Category) (model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stamp(&category.ID, &category.CreatedAt)

	if err := m.categories.insert(category.ID, category); err != nil {
		return model.Category{}, err
	}

	return category.Clone(), nil
}

// UpdateCategory replaces an existing category.
func (m *MemoryStore) UpdateCategory(_ context.Context, category model.Category) (model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.categories.replace(category.ID, category); err != nil {
		return model.Category{}, err
	}

	return category.Clone(), nil
}

// DeleteCategory removes a category and its document types.
// Documents in the category are left in place and become unreachable
// for everyone but their uploader and elevated roles.
func (m *MemoryStore) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.categories.remove(id)
}

// ListDocuments returns all documents in insertion order.
func (m *MemoryStore) ListDocuments(_ context.Context) ([]model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.documents.list(), nil
}

// ListDocumentsByCategory returns the documents filed under categoryID.
func (m *MemoryStore) ListDocumentsByCategory(_ context.Context, categoryID string) ([]model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]model.Document, 0)

	for _, id := range m.documents.order {
		if d := m.documents.rows[id]; d.CategoryID == categoryID {
			result = append(result, d.Clone())
		}
	}

	return result, nil
}

// GetDocument returns the document with the given ID.
func (m *MemoryStore) GetDocument(_ context.Context, id string) (model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.documents.get(id)
}

// CreateDocument adds a new document.
func (m *MemoryStore) CreateDocument(_ context.Context, document model.Document) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stamp(&document.ID, &document.CreatedAt)
	document.UpdatedAt = document.CreatedAt

	if err := m.documents.insert(document.ID, document); err != nil {
		return model.Document{}, err
	}

	return document.Clone(), nil
}

// UpdateDocument replaces an existing document and bumps UpdatedAt.
func (m *MemoryStore) UpdateDocument(_ context.Context, document model.Document) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	document.UpdatedAt = m.opts.now()

	if err := m.documents.replace(document.ID, document); err != nil {
		return model.Document{}, err
	}

	return document.Clone(), nil
}

// DeleteDocument removes a document.
func (m *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.documents.remove(id)
}

// ListAuditLogs returns all audit entries, newest first.
func (m *MemoryStore) ListAuditLogs(_ context.Context) ([]model.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return newestFirst(m.auditLogs.list()), nil
}

// AppendAuditLog records a new audit entry.
func (m *MemoryStore) AppendAuditLog(_ context.Context, entry model.AuditLog) (model.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stamp(&entry.ID, &entry.CreatedAt)

	if err := m.auditLogs.insert(entry.ID, entry); err != nil {
		return model.AuditLog{}, err
	}

	return entry, nil
}

// Reset removes every record.
func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users.clear()
	m.groups.clear()
	m.categories.clear()
	m.documents.clear()
	m.auditLogs.clear()

	return nil
}

// Snapshot reads users, groups, categories and documents under a single lock.
func (m *MemoryStore) Snapshot(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Users:      m.users.list(),
		Groups:     m.groups.list(),
		Categories: m.categories.list(),
		Documents:  m.documents.list(),
	}, nil
}

// stamp fills in a missing ID and creation time. Must be called with the lock held.
func (m *MemoryStore) stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = m.opts.newID()
	}

	if createdAt.IsZero() {
		*createdAt = m.opts.now()
	}
}

// Ensure MemoryStore implements Store.
var (
	_ Store       = (*MemoryStore)(nil)
	_ Snapshotter = (*MemoryStore)(nil)
)
