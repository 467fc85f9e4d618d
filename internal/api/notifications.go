package api

import (
	"errors"
	"net/http"

	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/notify"
)

// handleListNotifications handles GET /notifications.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if s.notifier == nil {
		s.writeJSON(w, http.StatusOK, []model.Notification{})

		return
	}

	s.writeJSON(w, http.StatusOK, s.notifier.History(UserIDFromContext(r.Context())))
}

// handleTestNotification handles POST /notifications/test?channel={channel}.
// The channel defaults to browser.
func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if s.notifier == nil {
		http.Error(w, "notifications are disabled", http.StatusServiceUnavailable)

		return
	}

	channel := model.Channel(r.URL.Query().Get("channel"))
	if channel == "" {
		channel = model.ChannelBrowser
	}

	user := SessionFromContext(r.Context()).User()

	n, err := s.notifier.SendTest(r.Context(), user, channel)
	if err != nil {
		if errors.Is(err, notify.ErrNoSender) {
			http.Error(w, "unknown channel", http.StatusBadRequest)

			return
		}

		s.internalError(w, "Failed to send test notification", err)

		return
	}

	s.writeJSON(w, http.StatusOK, n)
}
