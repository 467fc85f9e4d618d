package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/audit"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("session not found")
)

// Service signs users in and out and keeps the registry of live sessions.
type Service struct {
	users    storage.UserStore
	checker  *acl.Checker
	recorder *audit.Recorder
	log      logrus.FieldLogger
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Service.
type Option func(*Service)

// WithTTL expires sessions ttl after login. Zero keeps them until logout.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock overrides the clock used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a session service. recorder may be nil to skip auditing.
func NewService(
	users storage.UserStore, checker *acl.Checker, recorder *audit.Recorder, log logrus.FieldLogger, opts ...Option,
) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Service{
		users:    users,
		checker:  checker,
		recorder: recorder,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Login verifies the password and opens a session.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("user_id", user.ID).Info("Rejected login")

		return nil, ErrInvalidCredentials
	}

	now := s.now()
	sess := &Session{
		token:     uuid.NewString(),
		user:      user,
		checker:   s.checker,
		createdAt: now,
	}

	if s.ttl > 0 {
		sess.expiresAt = now.Add(s.ttl)
	}

	if s.recorder != nil {
		if err := s.recorder.Login(ctx, user); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.sessions[sess.token] = sess
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User signed in")

	return sess, nil
}

// Logout closes the session identified by token.
func (s *Service) Logout(ctx context.Context, token string) error {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()

	if !ok {
		return ErrNoSession
	}

	if s.recorder != nil {
		if err := s.recorder.Logout(ctx, sess.user); err != nil {
			return err
		}
	}

	s.log.WithField("user_id", sess.user.ID).Info("User signed out")

	return nil
}

// Lookup returns the live session for token.
func (s *Service) Lookup(token string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if sess.expired(s.now()) {
		s.drop(token)

		return nil, false
	}

	return sess, true
}

// Resolve returns the session for token with the user record reloaded from
// the store, so role and group changes apply to sessions already open.
// Sessions whose user has been deleted are closed.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	sess, ok := s.Lookup(token)
	if !ok {
		return nil, ErrNoSession
	}

	user, err := s.users.GetUser(ctx, sess.user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		s.drop(token)

		return nil, ErrNoSession
	}

	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}

	fresh := *sess
	fresh.user = user

	s.mu.Lock()
	if _, live := s.sessions[token]; live {
		s.sessions[token] = &fresh
	}
	s.mu.Unlock()

	return &fresh, nil
}

// Active returns the number of open sessions.
func (s *Service) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// Checker returns the permission checker sessions evaluate against.
func (s *Service) Checker() *acl.Checker {
	return s.checker
}

func (s *Service) drop(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// ForUser returns a session for user that is not registered under any token.
// Background jobs use it to act with a user's permissions.
func (s *Service) ForUser(user model.User) *Session {
	return &Session{user: user, checker: s.checker, createdAt: s.now()}
}
