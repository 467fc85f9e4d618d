package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/session"
)

// LoginRequest is the request body for signing in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for later requests.
type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// MeResponse describes the signed-in user and what their role may do.
type MeResponse struct {
	User        model.User `json:"user"`
	Permissions []string   `json:"permissions"`
}

// publicUser strips credentials before a user leaves the server.
func publicUser(u model.User) model.User {
	u.PasswordHash = ""

	return u
}

// handleLogin handles POST /login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)

		return
	}

	sess, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)

			return
		}

		s.internalError(w, "Login failed", err)

		return
	}

	s.writeJSON(w, http.StatusOK, LoginResponse{
		Token: sess.Token(),
		User:  publicUser(sess.User()),
	})
}

// handleLogout handles POST /logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context(), tokenFromRequest(r)); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			http.Error(w, "invalid or expired session", http.StatusUnauthorized)

			return
		}

		s.internalError(w, "Logout failed", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := SessionFromContext(r.Context()).User()

	s.writeJSON(w, http.StatusOK, MeResponse{
		User:        publicUser(user),
		Permissions: s.checker.Matrix().Permissions(user.Role),
	})
}
