package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/serroba/acdocs/internal/ws"
)

// handleWebSocket handles GET /ws?token={token}. The connection receives the
// user's browser notifications until it closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("Websocket upgrade failed")

		return
	}

	client := ws.NewClient(uuid.New().String(), userID, conn)
	s.hub.Register(client)

	defer func() {
		s.hub.Unregister(client)
		_ = client.Close()
	}()

	s.log.WithField("user_id", userID).Debug("Websocket client connected")

	client.Serve(s.markRead)
}

func (s *Server) markRead(userID, notificationID string) {
	if s.notifier == nil {
		return
	}

	if !s.notifier.MarkRead(userID, notificationID) {
		s.log.WithField("notification_id", notificationID).Debug("Read receipt for unknown notification")
	}
}
