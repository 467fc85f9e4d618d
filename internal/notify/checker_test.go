package notify_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/acdocs/internal/metrics"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/notify"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

// recordingSender captures what it is asked to send.
type recordingSender struct {
	channel model.Channel
	err     error

	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingSender) Channel() model.Channel { return r.channel }

func (r *recordingSender) Send(_ context.Context, _ model.User, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = append(r.sent, n)

	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sent)
}

func expiringIn(id string, days int) model.Document {
	at := testNow.Add(time.Duration(days) * 24 * time.Hour)

	return model.Document{ID: id, Name: "Doc " + id, ExpiresAt: &at}
}

func alertUser(prefs *model.NotificationPreferences, phone string) model.User {
	return model.User{ID: "u1", Email: "u1@example.com", Phone: phone, NotificationPreferences: prefs}
}

func TestChecker_CheckExpiring_SelectsAlertDays(t *testing.T) {
	t.Parallel()

	email := &recordingSender{channel: model.ChannelEmail}
	checker := notify.NewChecker(quietLogger(), notify.WithClock(clock), notify.WithSender(email))

	user := alertUser(&model.NotificationPreferences{Email: true, AlertDaysBefore: []int{30, 7, 0}}, "")
	docs := []model.Document{
		expiringIn("d30", 30),
		expiringIn("d7", 7),
		expiringIn("d8", 8),
		expiringIn("d0", 0),
		expiringIn("expired", -2),
		{ID: "no-expiry"},
	}

	sent := checker.CheckExpiring(context.Background(), user, docs)
	require.Len(t, sent, 3)

	ids := []string{sent[0].DocumentID, sent[1].DocumentID, sent[2].DocumentID}
	assert.Equal(t, []string{"d30", "d7", "d0"}, ids)
	assert.Equal(t, 7, sent[1].DaysUntilExpiration)
	assert.Equal(t, model.NotificationSent, sent[1].Status)
	assert.Equal(t, 3, email.count())
}

func TestChecker_CheckExpiring_Channels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prefs    model.NotificationPreferences
		phone    string
		expected []model.Channel
	}{
		{"email only", model.NotificationPreferences{Email: true}, "", []model.Channel{model.ChannelEmail}},
		{"whatsapp needs phone", model.NotificationPreferences{WhatsApp: true}, "", nil},
		{"whatsapp with phone", model.NotificationPreferences{WhatsApp: true}, "+1555", []model.Channel{model.ChannelWhatsApp}},
		{
			"all channels",
			model.NotificationPreferences{Email: true, WhatsApp: true, Browser: true},
			"+1555",
			[]model.Channel{model.ChannelEmail, model.ChannelWhatsApp, model.ChannelBrowser},
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			browser := &recordingSender{channel: model.ChannelBrowser}
			checker := notify.NewChecker(quietLogger(), notify.WithClock(clock), notify.WithSender(browser))

			prefs := tt.prefs
			prefs.AlertDaysBefore = []int{7}

			sent := checker.CheckExpiring(context.Background(), alertUser(&prefs, tt.phone), []model.Document{expiringIn("d1", 7)})

			var channels []model.Channel
			for _, n := range sent {
				channels = append(channels, n.Channel)
			}

			assert.Equal(t, tt.expected, channels)
		})
	}
}

func TestChecker_CheckExpiring_NoPreferences(t *testing.T) {
	t.Parallel()

	checker := notify.NewChecker(quietLogger(), notify.WithClock(clock))

	sent := checker.CheckExpiring(context.Background(), alertUser(nil, ""), []model.Document{expiringIn("d1", 7)})
	assert.NotNil(t, sent)
	assert.Empty(t, sent)
}

func TestChecker_CheckExpiring_DoesNotRepeat(t *testing.T) {
	t.Parallel()

	email := &recordingSender{channel: model.ChannelEmail}
	checker := notify.NewChecker(quietLogger(), notify.WithClock(clock), notify.WithSender(email))
	user := alertUser(&model.NotificationPreferences{Email: true, AlertDaysBefore: []int{7}}, "")
	docs := []model.Document{expiringIn("d1", 7)}

	require.Len(t, checker.CheckExpiring(context.Background(), user, docs), 1)
	require.Empty(t, checker.CheckExpiring(context.Background(), user, docs))
	assert.Equal(t, 1, email.count())

	checker.Clear()
	require.Len(t, checker.CheckExpiring(context.Background(), user, docs), 1)
}

func TestChecker_CheckExpiring_ConcurrentSendsOnce(t *testing.T) {
	t.Parallel()

	email := &recordingSender{channel: model.ChannelEmail}
	browser := &recordingSender{channel: model.ChannelBrowser}
	checker := notify.NewChecker(quietLogger(),
		notify.WithClock(clock), notify.WithSender(email), notify.WithSender(browser))

	user := alertUser(&model.NotificationPreferences{Email: true, Browser: true, AlertDaysBefore: []int{7}}, "")
	docs := []model.Document{expiringIn("d1", 7)}

	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			checker.CheckExpiring(context.Background(), user, docs)
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, email.count())
	assert.Equal(t, 1, browser.count())
	assert.Len(t, checker.History("u1"), 2)
}

func TestChecker_DeliveryOutcomes(t *testing.T) {
	t.Parallel()

	m := metrics.New(nil)
	failing := &recordingSender{channel: model.ChannelEmail, err: errors.New("smtp down")}
	offline := &recordingSender{channel: model.ChannelBrowser, err: notify.ErrNotDelivered}

	checker := notify.NewChecker(quietLogger(),
		notify.WithClock(clock), notify.WithSender(failing), notify.WithSender(offline), notify.WithMetrics(m))

	user := alertUser(&model.NotificationPreferences{Email: true, Browser: true, AlertDaysBefore: []int{7}}, "")

	sent := checker.CheckExpiring(context.Background(), user, []model.Document{expiringIn("d1", 7)})
	require.Len(t, sent, 2)
	assert.Equal(t, model.NotificationFailed, sent[0].Status)
	assert.Equal(t, model.NotificationPending, sent[1].Status)

	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("email", "failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("browser", "pending")), 0)

	// Failed deliveries are retried on the next check.
	again := checker.CheckExpiring(context.Background(), user, []model.Document{expiringIn("d1", 7)})
	require.Len(t, again, 1)
	assert.Equal(t, model.ChannelEmail, again[0].Channel)
}

func TestChecker_HistoryAndMarkRead(t *testing.T) {
	t.Parallel()

	checker := notify.NewChecker(quietLogger(), notify.WithClock(clock))

	n, err := checker.SendTest(context.Background(), model.User{ID: "u1"}, model.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, 7, n.DaysUntilExpiration)

	_, err = checker.SendTest(context.Background(), model.User{ID: "u2"}, model.ChannelWhatsApp)
	require.NoError(t, err)

	assert.Len(t, checker.History(""), 2)
	require.Len(t, checker.History("u1"), 1)

	assert.False(t, checker.MarkRead("u2", n.ID))
	assert.True(t, checker.MarkRead("u1", n.ID))
	assert.True(t, checker.History("u1")[0].Read)

	_, err = checker.SendTest(context.Background(), model.User{ID: "u1"}, model.ChannelBrowser)
	require.ErrorIs(t, err, notify.ErrNoSender)
}
