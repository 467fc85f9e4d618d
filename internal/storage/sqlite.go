package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/serroba/acdocs/internal/model"
)

// Each collection is a table keyed by id holding the JSON record in body,
// plus the natural-key columns the store looks records up by.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL COLLATE NOCASE UNIQUE,
	role       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

CREATE TABLE IF NOT EXISTS user_groups (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	body       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	body       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	category_id    TEXT NOT NULL,
	uploaded_by_id TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	body           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category_id);
CREATE INDEX IF NOT EXISTS idx_documents_uploader ON documents(uploaded_by_id);

CREATE TABLE IF NOT EXISTS audit_logs (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	action      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	body        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_user ON audit_logs(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at);
`

// SQLiteStore is a Store backed by a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// OpenSQLite opens the database at dsn and creates the schema.
func OpenSQLite(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

// NewSQLiteStore wraps an open database. Call Migrate before use.
func NewSQLiteStore(db *sql.DB, opts ...Option) *SQLiteStore {
	return &SQLiteStore{db: db, opts: buildOptions(opts)}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}

	return nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListUsers returns all users in insertion order.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]model.User, error) {
	return queryAll[model.User](ctx, s.db, `SELECT body FROM users ORDER BY rowid`)
}

// GetUser returns the user with the given ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (model.User, error) {
	return queryOne[model.User](ctx, s.db, `SELECT body FROM users WHERE id = ?`, id)
}

// GetUserByEmail looks a user up by email, case-insensitively.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return queryOne[model.User](ctx, s.db, `SELECT body FROM users WHERE email = ?`, email)
}

// CreateUser adds a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	s.stamp(&user.ID, &user.CreatedAt)

	err := s.insert(ctx,
		`INSERT INTO users (id, email, role, created_at, body) VALUES (?, ?, ?, ?, ?)`,
		user, user.ID, user.Email, string(user.Role), user.CreatedAt.UnixNano())
	if err != nil {
		return model.User{}, err
	}

	return user, nil
}

// UpdateUser replaces an existing user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user model.User) (model.User, error) {
	err := s.update(ctx,
		`UPDATE users SET email = ?, role = ?, body = ? WHERE id = ?`,
		user, func(body string) []any { return []any{user.Email, string(user.Role), body, user.ID} })
	if err != nil {
		return model.User{}, err
	}

	return user, nil
}

// DeleteUser removes a user.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	return s.delete(ctx, `DELETE FROM users WHERE id = ?`, id)
}

// ListGroups returns all groups in insertion order.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	return queryAll[model.Group](ctx, s.db, `SELECT body FROM user_groups ORDER BY rowid`)
}

// GetGroup returns the group with the given ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (model.Group, error) {
	return queryOne[model.Group](ctx, s.db, `SELECT body FROM user_groups WHERE id = ?`, id)
}

// CreateGroup adds a new group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group model.Group) (model.Group, error) {
	s.stamp(&group.ID, &group.CreatedAt)

	err := s.insert(ctx,
		`INSERT INTO user_groups (id, name, created_at, body) VALUES (?, ?, ?, ?)`,
		group, group.ID, group.Name, group.CreatedAt.UnixNano())
	if err != nil {
		return model.Group{}, err
	}

	return group, nil
}

// UpdateGroup replaces an existing group.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group model.Group) (model.Group, error) {
	err := s.update(ctx,
		`UPDATE user_groups SET name = ?, body = ? WHERE id = ?`,
		group, func(body string) []any { return []any{group.Name, body, group.ID} })
	if err != nil {
		return model.Group{}, err
	}

	return group, nil
}

// DeleteGroup removes a group.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	return s.delete(ctx, `DELETE FROM user_groups WHERE id = ?`, id)
}

// ListCategories returns all categories in insertion order.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	return queryAll[model.Category](ctx, s.db, `SELECT body FROM categories ORDER BY rowid`)
}

// GetCategory returns the category with the given ID.
func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (model.Category, error) {
	return queryOne[model.Category](ctx, s.db, `SELECT body FROM categories WHERE id = ?`, id)
}

// CreateCategory adds a new category.
func (s *SQLiteStore) CreateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	s.stamp(&category.ID, &category.CreatedAt)

	err := s.insert(ctx,
		`INSERT INTO categories (id, name, created_at, body) VALUES (?, ?, ?, ?)`,
		category, category.ID, category.Name, category.CreatedAt.UnixNano())
	if err != nil {
		return model.Category{}, err
	}

	return category, nil
}

// UpdateCategory replaces an existing category.
func (s *SQLiteStore) UpdateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	err := s.update(ctx,
		`UPDATE categories SET name = ?, body = ? WHERE id = ?`,
		category, func(body string) []any { return []any{category.Name, body, category.ID} })
	if err != nil {
		return model.Category{}, err
	}

	return category, nil
}

// DeleteCategory removes a category. Its documents are left in place.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	return s.delete(ctx, `DELETE FROM categories WHERE id = ?`, id)
}

// ListDocuments returns all documents in insertion order.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	return queryAll[model.Document](ctx, s.db, `SELECT body FROM documents ORDER BY rowid`)
}

// ListDocumentsByCategory returns the documents filed under categoryID.
func (s *SQLiteStore) ListDocumentsByCategory(ctx context.Context, categoryID string) ([]model.Document, error) {
	return queryAll[model.Document](ctx, s.db,
		`SELECT body FROM documents WHERE category_id = ? ORDER BY rowid`, categoryID)
}

// GetDocument returns the document with the given ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (model.Document, error) {
	return queryOne[model.Document](ctx, s.db, `SELECT body FROM documents WHERE id = ?`, id)
}

// CreateDocument adds a new document.
func (s *SQLiteStore) CreateDocument(ctx context.Context, document model.Document) (model.Document, error) {
	s.stamp(&document.ID, &document.CreatedAt)
	document.UpdatedAt = document.CreatedAt

	err := s.insert(ctx,
		`INSERT INTO documents (id, category_id, uploaded_by_id, created_at, body) VALUES (?, ?, ?, ?, ?)`,
		document, document.ID, document.CategoryID, document.UploadedByID, document.CreatedAt.UnixNano())
	if err != nil {
		return model.Document{}, err
	}

	return document, nil
}

// UpdateDocument replaces an existing document and bumps UpdatedAt.
func (s *SQLiteStore) UpdateDocument(ctx context.Context, document model.Document) (model.Document, error) {
	document.UpdatedAt = s.opts.now()

	err := s.update(ctx,
		`UPDATE documents SET category_id = ?, uploaded_by_id = ?, body = ? WHERE id = ?`,
		document, func(body string) []any {
			return []any{document.CategoryID, document.UploadedByID, body, document.ID}
		})
	if err != nil {
		return model.Document{}, err
	}

	return document, nil
}

// DeleteDocument removes a document.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	return s.delete(ctx, `DELETE FROM documents WHERE id = ?`, id)
}

// ListAuditLogs returns all audit entries, newest first.
func (s *SQLiteStore) ListAuditLogs(ctx context.Context) ([]model.AuditLog, error) {
	return queryAll[model.AuditLog](ctx, s.db,
		`SELECT body FROM audit_logs ORDER BY created_at DESC, rowid DESC`)
}

// AppendAuditLog records a new audit entry.
func (s *SQLiteStore) AppendAuditLog(ctx context.Context, entry model.AuditLog) (model.AuditLog, error) {
	s.stamp(&entry.ID, &entry.CreatedAt)

	err := s.insert(ctx,
		`INSERT INTO audit_logs (id, user_id, resource_id, action, created_at, body) VALUES (?, ?, ?, ?, ?, ?)`,
		entry, entry.ID, entry.UserID, entry.ResourceID, string(entry.Action), entry.CreatedAt.UnixNano())
	if err != nil {
		return model.AuditLog{}, err
	}

	return entry, nil
}

// Reset deletes every row of every table in one transaction.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"audit_logs", "documents", "categories", "user_groups", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}

	return nil
}

// Snapshot reads users, groups, categories and documents in one read transaction.
func (s *SQLiteStore) Snapshot(ctx context.Context) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	var snap Snapshot

	if snap.Users, err = queryAll[model.User](ctx, tx, `SELECT body FROM users ORDER BY rowid`); err != nil {
		return Snapshot{}, err
	}

	if snap.Groups, err = queryAll[model.Group](ctx, tx, `SELECT body FROM user_groups ORDER BY rowid`); err != nil {
		return Snapshot{}, err
	}

	if snap.Categories, err = queryAll[model.Category](ctx, tx, `SELECT body FROM categories ORDER BY rowid`); err != nil {
		return Snapshot{}, err
	}

	if snap.Documents, err = queryAll[model.Document](ctx, tx, `SELECT body FROM documents ORDER BY rowid`); err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

func (s *SQLiteStore) stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = s.opts.newID()
	}

	if createdAt.IsZero() {
		*createdAt = s.opts.now()
	}
}

// insert marshals record and runs query with args followed by the JSON body.
// args must list every column but body, in order.
func (s *SQLiteStore) insert(ctx context.Context, query string, record any, args ...any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, append(args, string(body))...); err != nil {
		return translateSQLiteError(err)
	}

	return nil
}

func (s *SQLiteStore) update(ctx context.Context, query string, record any, args func(body string) []any) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args(string(body))...)
	if err != nil {
		return translateSQLiteError(err)
	}

	return requireAffected(res)
}

func (s *SQLiteStore) delete(ctx context.Context, query, id string) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateSQLiteError(err)
	}

	return requireAffected(res)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryAll[T any](ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := make([]T, 0)

	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		var v T
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}

		out = append(out, v)
	}

	return out, rows.Err()
}

func queryOne[T any](ctx context.Context, q querier, query string, args ...any) (T, error) {
	var (
		v    T
		body string
	)

	err := q.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}

	if err != nil {
		return v, fmt.Errorf("query: %w", err)
	}

	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return v, fmt.Errorf("decode record: %w", err)
	}

	return v, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func translateSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintPrimaryKey:
		return ErrAlreadyExists
	case sqlite3.ErrConstraintUnique:
		return ErrDuplicateEmail
	default:
		return err
	}
}

// Ensure SQLiteStore implements Store.
var (
	_ Store       = (*SQLiteStore)(nil)
	_ Snapshotter = (*SQLiteStore)(nil)
)
