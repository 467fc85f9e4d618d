package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/audit"
	"github.com/serroba/acdocs/internal/metrics"
	"github.com/serroba/acdocs/internal/notify"
	"github.com/serroba/acdocs/internal/session"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/serroba/acdocs/internal/ws"
	"github.com/sirupsen/logrus"
)

// Server handles HTTP requests for the document API.
type Server struct {
	store    storage.Store
	sessions *session.Service
	checker  *acl.Checker
	recorder *audit.Recorder
	notifier *notify.Checker
	hub      *ws.Hub
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	seed       []byte
	bcryptCost int
}

// ServerConfig holds configuration for creating a server.
type ServerConfig struct {
	Store    storage.Store
	Sessions *session.Service
	Recorder *audit.Recorder
	Notifier *notify.Checker
	Hub      *ws.Hub
	Metrics  *metrics.Metrics
	Logger   logrus.FieldLogger

	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string

	// Seed is reloaded by POST /admin/reset. Nil disables the route.
	Seed       []byte
	BcryptCost int
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	hub := cfg.Hub
	if hub == nil {
		hub = ws.NewHub()
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = audit.NewRecorder(cfg.Store, log)
	}

	return &Server{
		store:    cfg.Store,
		sessions: cfg.Sessions,
		checker:  cfg.Sessions.Checker(),
		recorder: recorder,
		notifier: cfg.Notifier,
		hub:      hub,
		metrics:  cfg.Metrics,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(cfg.AllowedOrigins) == 0 {
					return true
				}

				return slices.Contains(cfg.AllowedOrigins, r.Header.Get("Origin"))
			},
		},

		seed:       cfg.Seed,
		bcryptCost: cfg.BcryptCost,
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)

	authed.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)

	authed.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	authed.Handle("/groups", s.requirePermission("groups:read", s.handleListGroups)).Methods(http.MethodGet)
	authed.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	authed.HandleFunc("/audit", s.handleListAudit).Methods(http.MethodGet)

	authed.Handle("/documents", s.requirePermission("documents:read", s.handleListDocuments)).Methods(http.MethodGet)
	authed.Handle("/documents", s.requirePermission("documents:create", s.handleCreateDocument)).Methods(http.MethodPost)
	authed.Handle("/documents/{id}", s.requirePermission("documents:read", s.handleGetDocument)).Methods(http.MethodGet)
	authed.HandleFunc("/documents/{id}", s.handleUpdateDocument).Methods(http.MethodPut)
	authed.HandleFunc("/documents/{id}", s.handleDeleteDocument).Methods(http.MethodDelete)

	authed.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/test", s.handleTestNotification).Methods(http.MethodPost)
	authed.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	if s.seed != nil {
		authed.Handle("/admin/reset", s.requirePermission(acl.Wildcard, s.handleReset)).Methods(http.MethodPost)
	}

	return r
}

// pinger is implemented by stores backed by a database connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.log.WithError(err).Warn("Health check failed")
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)

			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v as the response body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("Failed to encode response")
	}
}

// internalError logs err and answers 500.
func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.log.WithError(err).Error(msg)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
