package audit_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/audit"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAuditStore struct{}

func (failingAuditStore) ListAuditLogs(context.Context) ([]model.AuditLog, error) {
	return nil, errors.New("unavailable")
}

func (failingAuditStore) AppendAuditLog(context.Context, model.AuditLog) (model.AuditLog, error) {
	return model.AuditLog{}, errors.New("unavailable")
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func TestRecorder_Record(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	rec := audit.NewRecorder(store, quietLogger())
	actor := model.User{ID: "u1", Name: "Ada"}

	entry, err := rec.Record(ctx, actor, audit.Event{
		Action:       model.AuditCreate,
		ResourceType: model.ResourceCategory,
		ResourceID:   "c1",
		ResourceName: "Finance",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "Ada", entry.UserName)
	assert.False(t, entry.CreatedAt.IsZero())

	logs, err := store.ListAuditLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditCreate, logs[0].Action)
}

func TestRecorder_LoginLogout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	rec := audit.NewRecorder(store, quietLogger())
	user := model.User{ID: "u1", Name: "Ada"}

	require.NoError(t, rec.Login(ctx, user))
	require.NoError(t, rec.Logout(ctx, user))

	logs, err := store.ListAuditLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	for _, l := range logs {
		assert.Equal(t, model.ResourceAuth, l.ResourceType)
		assert.Equal(t, "u1", l.ResourceID)
	}
}

func TestRecorder_LogsFailures(t *testing.T) {
	t.Parallel()

	log, hook := test.NewNullLogger()
	rec := audit.NewRecorder(failingAuditStore{}, log)

	err := rec.Document(context.Background(), model.User{ID: "u1"}, model.AuditDelete, model.Document{ID: "d1"})
	require.Error(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "d1", entry.Data["resource_id"])
}

func TestRecorder_ListIsScopedToViewer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	rec := audit.NewRecorder(store, quietLogger())
	checker := acl.NewChecker(acl.DefaultMatrix())

	require.NoError(t, rec.Login(ctx, model.User{ID: "reader", Role: model.RoleReader}))
	require.NoError(t, rec.Login(ctx, model.User{ID: "boss", Role: model.RoleManager}))

	own, err := rec.List(ctx, checker, model.User{ID: "reader", Role: model.RoleReader})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "reader", own[0].UserID)

	all, err := rec.List(ctx, checker, model.User{ID: "boss", Role: model.RoleManager})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
