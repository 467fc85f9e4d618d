package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/session"
	"github.com/sirupsen/logrus"
)

const (
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "

	// queryToken carries the bearer token on websocket upgrades, where
	// browsers cannot set headers.
	queryToken = "token"
)

// tokenFromRequest returns the bearer token from the Authorization header,
// falling back to the token query parameter.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(headerAuthorization); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}

	return r.URL.Query().Get(queryToken)
}

// authMiddleware resolves the bearer token to a session and adds it to the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)

			return
		}

		sess, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				http.Error(w, "invalid or expired session", http.StatusUnauthorized)

				return
			}

			s.log.WithError(err).Error("Failed to resolve session")
			http.Error(w, "internal server error", http.StatusInternalServerError)

			return
		}

		ctx := withSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePermission rejects requests whose user role lacks permission.
func (s *Server) requirePermission(permission string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := SessionFromContext(r.Context()).User()

		err := s.checker.RequirePermission(user.Role, permission)
		s.metrics.Decision(permission, err == nil)

		if errors.Is(err, acl.ErrAccessDenied) {
			s.log.WithError(err).WithField("user_id", user.ID).Debug("Request denied")
			http.Error(w, "access denied", http.StatusForbidden)

			return
		}

		next(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades through the logging middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}

	r.status = http.StatusSwitchingProtocols

	return h.Hijack()
}

// loggingMiddleware logs one line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Handled request")
	})
}
