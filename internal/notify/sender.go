// Package notify alerts users about documents that are about to expire.
package notify

import (
	"context"
	"errors"

	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/ws"
	"github.com/sirupsen/logrus"
)

// ErrNotDelivered is returned by a Sender that had nobody to deliver to.
// The notification is kept as pending.
var ErrNotDelivered = errors.New("notification not delivered")

// Sender delivers notifications on one channel.
type Sender interface {
	Channel() model.Channel
	Send(ctx context.Context, user model.User, n model.Notification) error
}

// LogSender stands in for an external gateway by logging each message.
type LogSender struct {
	channel model.Channel
	log     logrus.FieldLogger
}

// NewLogSender creates a sender for channel that only logs.
func NewLogSender(channel model.Channel, log logrus.FieldLogger) *LogSender {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &LogSender{channel: channel, log: log}
}

func (s *LogSender) Channel() model.Channel {
	return s.channel
}

func (s *LogSender) Send(_ context.Context, user model.User, n model.Notification) error {
	s.log.WithFields(logrus.Fields{
		"channel":     s.channel,
		"user_id":     user.ID,
		"document_id": n.DocumentID,
		"days_left":   n.DaysUntilExpiration,
	}).Info(n.Message)

	return nil
}

// HubSender pushes browser notifications to the user's open websocket clients.
type HubSender struct {
	hub *ws.Hub
}

// NewHubSender creates a browser-channel sender backed by hub.
func NewHubSender(hub *ws.Hub) *HubSender {
	return &HubSender{hub: hub}
}

func (s *HubSender) Channel() model.Channel {
	return model.ChannelBrowser
}

func (s *HubSender) Send(_ context.Context, user model.User, n model.Notification) error {
	delivered := s.hub.SendToUser(user.ID, ws.Message{
		Type: ws.MessageTypeNotification,
		Payload: ws.NotificationPayload{
			ID:                  n.ID,
			DocumentID:          n.DocumentID,
			DocumentName:        n.DocumentName,
			Message:             n.Message,
			ExpiresAt:           n.ExpiresAt,
			DaysUntilExpiration: n.DaysUntilExpiration,
			SentAt:              n.SentAt,
		},
	})
	if delivered == 0 {
		return ErrNotDelivered
	}

	return nil
}
