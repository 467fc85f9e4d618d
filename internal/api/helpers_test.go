package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/api"
	"github.com/serroba/acdocs/internal/audit"
	"github.com/serroba/acdocs/internal/metrics"
	"github.com/serroba/acdocs/internal/notify"
	"github.com/serroba/acdocs/internal/session"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/serroba/acdocs/internal/ws"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fixture is a server over the demo data set.
type fixture struct {
	store    *storage.MemoryStore
	hub      *ws.Hub
	notifier *notify.Checker
	metrics  *metrics.Metrics
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	log, _ := logtest.NewNullLogger()

	store := storage.NewMemoryStore()
	seeded, err := storage.Seed(ctx, store, bytes.NewReader(storage.DemoSeed), bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, seeded)

	m := metrics.New(prometheus.NewRegistry())
	hub := ws.NewHub()
	checker := acl.NewChecker(acl.DefaultMatrix())
	recorder := audit.NewRecorder(store, log)
	notifier := notify.NewChecker(log,
		notify.WithSender(notify.NewHubSender(hub)),
		notify.WithMetrics(m),
	)

	server := api.NewServer(api.ServerConfig{
		Store:    store,
		Sessions: session.NewService(store, checker, recorder, log),
		Recorder: recorder,
		Notifier: notifier,
		Hub:      hub,
		Metrics:  m,
		Logger:   log,

		Seed:       storage.DemoSeed,
		BcryptCost: bcrypt.MinCost,
	})

	return &fixture{
		store:    store,
		hub:      hub,
		notifier: notifier,
		metrics:  m,
		handler:  server.Handler(),
	}
}

// login signs in a demo user and returns the bearer token.
func (f *fixture) login(t *testing.T, email string) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/login", "", api.LoginRequest{Email: email, Password: "demo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)

	return resp.Token
}

// do sends a request with an optional JSON body and bearer token.
func (f *fixture) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}

	return out
}
