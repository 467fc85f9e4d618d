package api

import (
	"context"

	"github.com/serroba/acdocs/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionFromContext extracts the signed-in session from the context.
// Returns nil if not present.
func SessionFromContext(ctx context.Context) *session.Session {
	if v := ctx.Value(sessionKey); v != nil {
		if sess, ok := v.(*session.Session); ok {
			return sess
		}
	}

	return nil
}

// UserIDFromContext extracts the signed-in user's ID from the context.
// Returns empty string if not present.
func UserIDFromContext(ctx context.Context) string {
	return SessionFromContext(ctx).User().ID
}

// withSession returns a new context with the session set.
func withSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}
