// Package metrics exposes Prometheus counters for authorization decisions,
// store cache efficiency and expiration alerts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	AuthzDecisionsTotal *prometheus.CounterVec
	VisibleRecords      *prometheus.HistogramVec
	CacheRequestsTotal  *prometheus.CounterVec
	NotificationsTotal  *prometheus.CounterVec
	AlertSweepsTotal    *prometheus.CounterVec
}

// New creates and registers all collectors on registry.
// A nil registry gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acdocs_authz_decisions_total",
				Help: "Authorization decisions by check and result",
			},
			[]string{"check", "result"},
		),
		VisibleRecords: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acdocs_visible_records",
				Help:    "Number of records left after projecting a collection for a user",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"collection"},
		),
		CacheRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acdocs_cache_requests_total",
				Help: "Store cache lookups by collection and result",
			},
			[]string{"collection", "result"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acdocs_notifications_total",
				Help: "Expiration notifications by channel and status",
			},
			[]string{"channel", "status"},
		),
		AlertSweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acdocs_alert_sweeps_total",
				Help: "Scheduled expiration sweeps by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.AuthzDecisionsTotal,
		m.VisibleRecords,
		m.CacheRequestsTotal,
		m.NotificationsTotal,
		m.AlertSweepsTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Decision records the outcome of an authorization check.
func (m *Metrics) Decision(check string, allowed bool) {
	if m == nil {
		return
	}

	result := ResultDenied
	if allowed {
		result = ResultAllowed
	}

	m.AuthzDecisionsTotal.WithLabelValues(check, result).Inc()
}

// Visible records how many records a projection kept.
func (m *Metrics) Visible(collection string, n int) {
	if m == nil {
		return
	}

	m.VisibleRecords.WithLabelValues(collection).Observe(float64(n))
}

// Cache records a cache lookup.
func (m *Metrics) Cache(collection string, hit bool) {
	if m == nil {
		return
	}

	result := ResultMiss
	if hit {
		result = ResultHit
	}

	m.CacheRequestsTotal.WithLabelValues(collection, result).Inc()
}

// Notification records a delivered or failed notification.
func (m *Metrics) Notification(channel, status string) {
	if m == nil {
		return
	}

	m.NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// Sweep records the outcome of a scheduled expiration sweep.
func (m *Metrics) Sweep(outcome string) {
	if m == nil {
		return
	}

	m.AlertSweepsTotal.WithLabelValues(outcome).Inc()
}
