package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/metrics"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/notify"
	"github.com/serroba/acdocs/internal/session"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/serroba/acdocs/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSweepStore(t *testing.T) storage.Store {
	t.Helper()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	prefs := &model.NotificationPreferences{Browser: true, AlertDaysBefore: []int{7}}

	users := []model.User{
		{ID: "alice", Email: "alice@example.com", Role: model.RoleUser, GroupIDs: []string{"g-fin"}, NotificationPreferences: prefs},
		{ID: "bob", Email: "bob@example.com", Role: model.RoleReader, GroupIDs: []string{"g-legal"}, NotificationPreferences: prefs},
		{ID: "root", Email: "root@example.com", Role: model.RoleOwner, NotificationPreferences: prefs},
	}
	for _, u := range users {
		_, err := store.CreateUser(ctx, u)
		require.NoError(t, err)
	}

	_, err := store.CreateGroup(ctx, model.Group{ID: "g-fin", MemberIDs: []string{"alice"}})
	require.NoError(t, err)
	_, err = store.CreateGroup(ctx, model.Group{ID: "g-legal", MemberIDs: []string{"bob"}})
	require.NoError(t, err)
	_, err = store.CreateCategory(ctx, model.Category{ID: "finance", SharedWithGroupIDs: []string{"g-fin"}})
	require.NoError(t, err)

	doc := expiringIn("budget", 7)
	doc.CategoryID = "finance"
	doc.UploadedByID = "root"
	_, err = store.CreateDocument(ctx, doc)
	require.NoError(t, err)

	return store
}

func sweepSessions(store storage.Store, matrix *acl.Matrix) *session.Service {
	return session.NewService(store, acl.NewChecker(matrix), nil, quietLogger())
}

func TestScheduler_SweepRespectsVisibility(t *testing.T) {
	t.Parallel()

	browser := &recordingSender{channel: model.ChannelBrowser}
	checker := notify.NewChecker(quietLogger(), notify.WithClock(clock), notify.WithSender(browser))
	m := metrics.New(nil)

	store := seedSweepStore(t)

	sched, err := notify.NewScheduler(store, sweepSessions(store, acl.DefaultMatrix()), checker, "", quietLogger(), m)
	require.NoError(t, err)

	sent, err := sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	assert.Len(t, checker.History("alice"), 1)
	assert.Len(t, checker.History("root"), 1)
	assert.Empty(t, checker.History("bob"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.AlertSweepsTotal.WithLabelValues(notify.SweepOK)), 0)
}

func TestScheduler_SweepSkipsRolesWithoutRead(t *testing.T) {
	t.Parallel()

	grants := acl.DefaultGrants()
	grants[model.RoleUser] = []string{"categories:read"}

	matrix, err := acl.NewMatrix(grants)
	require.NoError(t, err)

	browser := &recordingSender{channel: model.ChannelBrowser}
	checker := notify.NewChecker(quietLogger(), notify.WithClock(clock), notify.WithSender(browser))
	store := seedSweepStore(t)

	sched, err := notify.NewScheduler(store, sweepSessions(store, matrix), checker, "", quietLogger(), nil)
	require.NoError(t, err)

	sent, err := sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	assert.Empty(t, checker.History("alice"), "the user role cannot read documents")
	assert.Len(t, checker.History("root"), 1)
}

func TestScheduler_SweepCanceled(t *testing.T) {
	t.Parallel()

	checker := notify.NewChecker(quietLogger(), notify.WithClock(clock))

	store := seedSweepStore(t)

	sched, err := notify.NewScheduler(store, sweepSessions(store, acl.DefaultMatrix()), checker, "", quietLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sched.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	_, err := notify.NewScheduler(
		store, sweepSessions(store, acl.DefaultMatrix()), notify.NewChecker(quietLogger()), "every day", quietLogger(), nil)
	require.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	sched, err := notify.NewScheduler(
		store, sweepSessions(store, acl.DefaultMatrix()), notify.NewChecker(quietLogger()), "*/5 * * * *", quietLogger(), nil)
	require.NoError(t, err)

	sched.Start()

	select {
	case <-sched.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestHubSender(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	sender := notify.NewHubSender(hub)
	user := model.User{ID: "u1"}

	err := sender.Send(context.Background(), user, model.Notification{ID: "n1"})
	require.ErrorIs(t, err, notify.ErrNotDelivered)

	conn := &captureConn{}
	hub.Register(ws.NewClient("c1", "u1", conn))

	require.NoError(t, sender.Send(context.Background(), user, model.Notification{ID: "n2", DocumentID: "d1"}))
	require.Len(t, conn.written, 1)

	msg, ok := conn.written[0].(ws.Message)
	require.True(t, ok)
	assert.Equal(t, ws.MessageTypeNotification, msg.Type)
	assert.Equal(t, model.ChannelBrowser, sender.Channel())
}

type captureConn struct {
	written []any
}

func (c *captureConn) WriteJSON(v any) error {
	c.written = append(c.written, v)

	return nil
}

func (c *captureConn) ReadJSON(any) error { return context.Canceled }

func (c *captureConn) Close() error { return nil }
