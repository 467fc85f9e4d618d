package api

import (
	"errors"
	"net/http"

	"github.com/serroba/acdocs/internal/storage"
	"github.com/serroba/acdocs/internal/ws"
)

// handleReset handles POST /admin/reset. It replaces every record with the
// configured seed, forgets sent alerts and tells connected clients to reload.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	if err := storage.Reseed(r.Context(), s.store, s.seed, s.bcryptCost); err != nil {
		if errors.Is(err, storage.ErrResetUnsupported) {
			http.Error(w, "store cannot be reset", http.StatusNotImplemented)

			return
		}

		s.internalError(w, "Failed to reset data", err)

		return
	}

	if s.notifier != nil {
		s.notifier.Clear()
	}

	s.hub.Broadcast(ws.Message{Type: ws.MessageTypeReset})
	s.log.WithField("user_id", user.ID).Warn("Data reset to seed")

	w.WriteHeader(http.StatusNoContent)
}
