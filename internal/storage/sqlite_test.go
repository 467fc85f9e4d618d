package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, err := storage.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)

	defer store.Close()

	_, err = store.CreateUser(ctx, model.User{ID: "u1", Email: "u1@example.com", Role: model.RoleUser})
	require.NoError(t, err)

	require.NoError(t, store.Migrate(ctx))

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	require.NoError(t, store.Ping(ctx))
}

func TestSQLiteStore_PersistsPasswordHash(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, err := storage.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)

	defer store.Close()

	_, err = store.CreateUser(ctx, model.User{ID: "u1", Email: "u1@example.com", Role: model.RoleUser, PasswordHash: "$2a$hash"})
	require.NoError(t, err)

	got, err := store.GetUserByEmail(ctx, "U1@example.com")
	require.NoError(t, err)
	assert.Equal(t, "$2a$hash", got.PasswordHash)
}

func TestSQLiteStore_MigrateError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("disk full"))

	store := storage.NewSQLiteStore(db)

	err = store.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate sqlite schema")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_QueryError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM documents ORDER BY rowid`)).
		WillReturnError(errors.New("connection reset"))

	store := storage.NewSQLiteStore(db)

	_, err = store.ListDocuments(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_DecodesRows(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	rows := sqlmock.NewRows([]string{"body"}).
		AddRow(`{"id":"g1","name":"Finance","memberIds":["u1"]}`).
		AddRow(`{"id":"g2","name":"Legal","memberIds":[]}`)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM user_groups ORDER BY rowid`)).WillReturnRows(rows)

	store := storage.NewSQLiteStore(db)

	groups, err := store.ListGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.True(t, groups[0].HasMember("u1"))
	assert.Equal(t, "Legal", groups[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_UpdateMissingRow(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET`)).WillReturnResult(sqlmock.NewResult(0, 0))

	store := storage.NewSQLiteStore(db)

	_, err = store.UpdateDocument(context.Background(), model.Document{ID: "ghost"})
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_ResetRollsBackOnError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM audit_logs`)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM documents`)).WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	store := storage.NewSQLiteStore(db)

	err = store.Reset(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset documents")
	require.NoError(t, mock.ExpectationsWereMet())
}
