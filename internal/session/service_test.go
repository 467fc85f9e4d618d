package session_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/audit"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/session"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func newService(t *testing.T, opts ...session.Option) (*session.Service, *storage.MemoryStore) {
	t.Helper()

	ctx := context.Background()
	store := storage.NewMemoryStore()

	hash, err := bcrypt.GenerateFromPassword([]byte("demo"), bcrypt.MinCost)
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, model.User{
		ID:           "u1",
		Name:         "Ada",
		Email:        "ada@example.com",
		Role:         model.RoleUser,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, model.User{ID: "u2", Email: "nopass@example.com", Role: model.RoleReader})
	require.NoError(t, err)

	log := quietLogger()
	svc := session.NewService(store, acl.NewChecker(acl.DefaultMatrix()), audit.NewRecorder(store, log), log, opts...)

	return svc, store
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newService(t)

	sess, err := svc.Login(ctx, " ADA@example.com ", "demo")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token())
	assert.Equal(t, "u1", sess.User().ID)
	assert.Equal(t, 1, svc.Active())

	found, ok := svc.Lookup(sess.Token())
	require.True(t, ok)
	assert.Same(t, sess, found)

	logs, err := store.ListAuditLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditLogin, logs[0].Action)
}

func TestService_LoginRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "ada@example.com", "nope"},
		{"unknown email", "ghost@example.com", "demo"},
		{"user without password", "nopass@example.com", ""},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, _ := newService(t)

			sess, err := svc.Login(context.Background(), tt.email, tt.password)
			require.ErrorIs(t, err, session.ErrInvalidCredentials)
			assert.Nil(t, sess)
			assert.Zero(t, svc.Active())
		})
	}
}

func TestService_Logout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newService(t)

	sess, err := svc.Login(ctx, "ada@example.com", "demo")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Token()))

	_, ok := svc.Lookup(sess.Token())
	assert.False(t, ok)

	require.ErrorIs(t, svc.Logout(ctx, sess.Token()), session.ErrNoSession)

	logs, err := store.ListAuditLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditLogout, logs[0].Action)
}

func TestService_SessionExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	svc, _ := newService(t, session.WithTTL(time.Hour), session.WithClock(clock))

	sess, err := svc.Login(context.Background(), "ada@example.com", "demo")
	require.NoError(t, err)

	_, ok := svc.Lookup(sess.Token())
	require.True(t, ok)

	now = now.Add(time.Hour)

	_, ok = svc.Lookup(sess.Token())
	assert.False(t, ok)
	assert.Zero(t, svc.Active())
}

func TestService_ResolveReloadsUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newService(t)

	sess, err := svc.Login(ctx, "ada@example.com", "demo")
	require.NoError(t, err)
	assert.False(t, sess.Can("categories:read"))

	user, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)

	user.Role = model.RoleManager
	_, err = store.UpdateUser(ctx, user)
	require.NoError(t, err)

	fresh, err := svc.Resolve(ctx, sess.Token())
	require.NoError(t, err)
	assert.True(t, fresh.Can("categories:read"))

	require.NoError(t, store.DeleteUser(ctx, "u1"))

	_, err = svc.Resolve(ctx, sess.Token())
	require.ErrorIs(t, err, session.ErrNoSession)
	assert.Zero(t, svc.Active())
}

func TestSession_CanAndIsRole(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	sess := svc.ForUser(model.User{ID: "m", Role: model.RoleManager})

	assert.True(t, sess.Can("documents:delete"))
	assert.False(t, sess.Can("users:read"))
	assert.True(t, sess.IsRole(model.RoleOwner, model.RoleManager))
	assert.False(t, sess.IsRole(model.RoleOwner, model.RoleAdmin))
	assert.Empty(t, sess.Token())
}

func TestSession_NilHoldsNothing(t *testing.T) {
	t.Parallel()

	var sess *session.Session

	assert.False(t, sess.Can("documents:read"))
	assert.False(t, sess.IsRole(model.RoleReader))
	assert.Empty(t, sess.User().ID)
}
