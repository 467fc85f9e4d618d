package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/acdocs/internal/metrics"
	"github.com/serroba/acdocs/internal/model"
	"github.com/sirupsen/logrus"
)

// ErrNoSender is returned when no sender is configured for a channel.
var ErrNoSender = errors.New("no sender for channel")

// Checker selects the documents a user should be alerted about and sends
// the alerts on the channels the user enabled. It keeps a history of
// everything it sent.
type Checker struct {
	senders map[model.Channel]Sender
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	history []model.Notification
	sent    map[string]struct{}
}

// Option configures a Checker.
type Option func(*Checker)

// WithSender registers s for its channel, replacing any previous sender.
func WithSender(s Sender) Option {
	return func(c *Checker) {
		c.senders[s.Channel()] = s
	}
}

// WithClock overrides the clock used to compute days left.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		c.now = now
	}
}

// WithMetrics records notification outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// NewChecker creates a checker. Email and WhatsApp default to LogSender.
func NewChecker(log logrus.FieldLogger, opts ...Option) *Checker {
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Checker{
		senders: map[model.Channel]Sender{
			model.ChannelEmail:    NewLogSender(model.ChannelEmail, log),
			model.ChannelWhatsApp: NewLogSender(model.ChannelWhatsApp, log),
		},
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
		sent:  make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CheckExpiring alerts user about each document whose days until expiry is
// one of the user's alert days. Documents already expired are skipped, as
// are users without notification preferences. The same alert is not sent
// twice. It returns the notifications created by this call.
//
// documents must already be restricted to what user may see.
func (c *Checker) CheckExpiring(ctx context.Context, user model.User, documents []model.Document) []model.Notification {
	prefs := user.NotificationPreferences
	if prefs == nil {
		return []model.Notification{}
	}

	now := c.now()
	out := make([]model.Notification, 0)

	for _, doc := range documents {
		daysLeft, ok := model.DaysUntilExpiration(doc.ExpiresAt, now)
		if !ok || daysLeft < 0 || !slices.Contains(prefs.AlertDaysBefore, daysLeft) {
			continue
		}

		if prefs.Email {
			out = c.appendSent(ctx, out, user, doc, daysLeft, model.ChannelEmail,
				fmt.Sprintf("Email sent to %s: document %q expires in %d days", user.Email, doc.Name, daysLeft))
		}

		if prefs.WhatsApp && user.Phone != "" {
			out = c.appendSent(ctx, out, user, doc, daysLeft, model.ChannelWhatsApp,
				fmt.Sprintf("WhatsApp sent to %s: document %q expires in %d days", user.Phone, doc.Name, daysLeft))
		}

		if prefs.Browser {
			out = c.appendSent(ctx, out, user, doc, daysLeft, model.ChannelBrowser,
				"Browser notification: "+browserTitle(daysLeft))
		}
	}

	return out
}

// SendTest sends a sample alert on channel for a document expiring in 7 days.
func (c *Checker) SendTest(ctx context.Context, user model.User, channel model.Channel) (model.Notification, error) {
	if _, ok := c.senders[channel]; !ok {
		return model.Notification{}, fmt.Errorf("%w: %s", ErrNoSender, channel)
	}

	expires := c.now().Add(7 * 24 * time.Hour)
	doc := model.Document{ID: "test-doc", Name: "Test document", ExpiresAt: &expires}
	n := c.deliver(ctx, user, doc, 7, channel, "Test notification sent")

	return n, nil
}

// History returns the notifications sent to userID, oldest first.
// An empty userID returns every notification.
func (c *Checker) History(userID string) []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Notification, 0, len(c.history))

	for _, n := range c.history {
		if userID == "" || n.UserID == userID {
			out = append(out, n)
		}
	}

	return out
}

// MarkRead flags a notification of userID as seen. It reports whether the
// notification was found.
func (c *Checker) MarkRead(userID, notificationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.history {
		if c.history[i].ID == notificationID && c.history[i].UserID == userID {
			c.history[i].Read = true

			return true
		}
	}

	return false
}

// Clear empties the history.
func (c *Checker) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = nil
	c.sent = make(map[string]struct{})
}

func (c *Checker) appendSent(
	ctx context.Context, out []model.Notification,
	user model.User, doc model.Document, daysLeft int, channel model.Channel, message string,
) []model.Notification {
	key := fmt.Sprintf("%s|%s|%s|%d", user.ID, doc.ID, channel, daysLeft)

	// The key is held while delivering so concurrent checks send once.
	c.mu.Lock()
	_, dup := c.sent[key]
	if !dup {
		c.sent[key] = struct{}{}
	}
	c.mu.Unlock()

	if dup {
		return out
	}

	n := c.deliver(ctx, user, doc, daysLeft, channel, message)
	if n.Status == model.NotificationFailed {
		c.mu.Lock()
		delete(c.sent, key)
		c.mu.Unlock()
	}

	return append(out, n)
}

func (c *Checker) deliver(
	ctx context.Context, user model.User, doc model.Document, daysLeft int, channel model.Channel, message string,
) model.Notification {
	n := model.Notification{
		ID:                  c.newID(),
		UserID:              user.ID,
		DocumentID:          doc.ID,
		DocumentName:        doc.Name,
		Channel:             channel,
		Status:              model.NotificationSent,
		Message:             message,
		SentAt:              c.now(),
		ExpiresAt:           doc.ExpiresAt,
		DaysUntilExpiration: daysLeft,
	}

	sender, ok := c.senders[channel]

	var err error
	if ok {
		err = sender.Send(ctx, user, n)
	} else {
		err = fmt.Errorf("%w: %s", ErrNoSender, channel)
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrNotDelivered):
		n.Status = model.NotificationPending
	default:
		n.Status = model.NotificationFailed
		c.log.WithFields(logrus.Fields{
			"channel":     channel,
			"user_id":     user.ID,
			"document_id": doc.ID,
		}).WithError(err).Warn("Failed to send notification")
	}

	c.metrics.Notification(string(channel), string(n.Status))

	c.mu.Lock()
	c.history = append(c.history, n)
	c.mu.Unlock()

	return n
}

func browserTitle(daysLeft int) string {
	switch daysLeft {
	case 0:
		return "Document expires today!"
	case 1:
		return "Document expires in 1 day"
	default:
		return fmt.Sprintf("Document expires in %d days", daysLeft)
	}
}
