package api_test

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/acdocs/internal/metrics"
	"github.com/serroba/acdocs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCategories(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		email string
		want  []string
	}{
		{"admin@acdocs.local", []string{"c-finance", "c-legal", "c-hr", "c-archive"}},
		{"manager@acdocs.local", []string{"c-finance", "c-legal", "c-hr"}},
		{"user@acdocs.local", []string{"c-finance"}},
		{"reader@acdocs.local", []string{"c-legal"}},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.email, func(t *testing.T) {
			t.Parallel()

			rec := f.do(t, http.MethodGet, "/categories", f.login(t, tt.email), nil)
			require.Equal(t, http.StatusOK, rec.Code)

			cats := decode[[]model.Category](t, rec)
			assert.Equal(t, tt.want, ids(cats, func(c model.Category) string { return c.ID }))
		})
	}
}

func TestListGroups(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	t.Run("manager sees own groups", func(t *testing.T) {
		t.Parallel()

		rec := f.do(t, http.MethodGet, "/groups", f.login(t, "manager@acdocs.local"), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		groups := decode[[]model.Group](t, rec)
		assert.Equal(t, []string{"g-management", "g-finance"}, ids(groups, func(g model.Group) string { return g.ID }))
	})

	t.Run("owner sees every group", func(t *testing.T) {
		t.Parallel()

		rec := f.do(t, http.MethodGet, "/groups", f.login(t, "owner@acdocs.local"), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]model.Group](t, rec), 3)
	})

	t.Run("user lacks groups:read", func(t *testing.T) {
		t.Parallel()

		rec := f.do(t, http.MethodGet, "/groups", f.login(t, "user@acdocs.local"), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		denied := f.metrics.AuthzDecisionsTotal.WithLabelValues("groups:read", metrics.ResultDenied)
		assert.InDelta(t, 1, testutil.ToFloat64(denied), 0)
	})
}

func TestListUsers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	t.Run("admin sees everyone without credentials", func(t *testing.T) {
		t.Parallel()

		rec := f.do(t, http.MethodGet, "/users", f.login(t, "admin@acdocs.local"), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		users := decode[[]model.User](t, rec)
		require.Len(t, users, 5)

		for _, u := range users {
			assert.Empty(t, u.PasswordHash, u.ID)
		}
	})

	t.Run("manager only sees themselves", func(t *testing.T) {
		t.Parallel()

		rec := f.do(t, http.MethodGet, "/users", f.login(t, "manager@acdocs.local"), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		users := decode[[]model.User](t, rec)
		require.Len(t, users, 1)
		assert.Equal(t, "u-manager", users[0].ID)
	})
}

func TestListAudit(t *testing.T) {
	t.Parallel()

	t.Run("manager sees the whole trail", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/audit", f.login(t, "manager@acdocs.local"), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		logs := decode[[]model.AuditLog](t, rec)
		// Three seeded entries plus the login.
		require.Len(t, logs, 4)
		assert.Equal(t, model.AuditLogin, logs[0].Action)
	})

	t.Run("reader sees only own entries", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.login(t, "manager@acdocs.local")

		rec := f.do(t, http.MethodGet, "/audit", f.login(t, "reader@acdocs.local"), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		logs := decode[[]model.AuditLog](t, rec)
		require.Len(t, logs, 2)

		for _, l := range logs {
			assert.Equal(t, "u-reader", l.UserID)
		}
	})
}
