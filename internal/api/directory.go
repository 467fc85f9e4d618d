package api

import (
	"net/http"

	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/storage"
)

// handleListCategories handles GET /categories.
// Every role may list categories; the result is what the user can see.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	snap, err := storage.LoadSnapshot(r.Context(), s.store)
	if err != nil {
		s.internalError(w, "Failed to load categories", err)

		return
	}

	visible := acl.AccessibleCategories(user, snap.Categories, snap.Groups)
	s.metrics.Visible(storage.CollectionCategories, len(visible))
	s.writeJSON(w, http.StatusOK, visible)
}

// handleListGroups handles GET /groups.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		s.internalError(w, "Failed to load groups", err)

		return
	}

	visible := acl.AccessibleGroups(user, groups)
	s.metrics.Visible(storage.CollectionGroups, len(visible))
	s.writeJSON(w, http.StatusOK, visible)
}

// handleListUsers handles GET /users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.internalError(w, "Failed to load users", err)

		return
	}

	visible := acl.AccessibleUsers(s.checker, user, users)
	out := make([]model.User, 0, len(visible))

	for _, u := range visible {
		out = append(out, publicUser(u))
	}

	s.metrics.Visible(storage.CollectionUsers, len(out))
	s.writeJSON(w, http.StatusOK, out)
}

// handleListAudit handles GET /audit.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	logs, err := s.recorder.List(r.Context(), s.checker, user)
	if err != nil {
		s.internalError(w, "Failed to load audit log", err)

		return
	}

	s.metrics.Visible(storage.CollectionAudit, len(logs))
	s.writeJSON(w, http.StatusOK, logs)
}
