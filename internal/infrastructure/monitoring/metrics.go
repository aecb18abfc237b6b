// Package monitoring exposes Prometheus metrics for the engine.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Reconciliation metrics
	EventsDispatched *prometheus.CounterVec
	ReconcileErrors  *prometheus.CounterVec

	// Registry metrics
	SpacesActive  prometheus.Gauge
	PinnedTabs    prometheus.Gauge
	TemporaryTabs prometheus.Gauge
	Persists      prometheus.Counter

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default
// registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsFor creates metrics on a caller-supplied registerer.
// Tests use this to avoid duplicate-registration panics.
func NewMetricsFor(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arcify_events_dispatched_total",
			Help: "Host events dispatched to the reconciler, by kind",
		}, []string{"kind"}),
		ReconcileErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arcify_reconcile_errors_total",
			Help: "Reconciliation operations abandoned after a host failure",
		}, []string{"operation"}),
		SpacesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arcify_spaces",
			Help: "Spaces currently in the registry",
		}),
		PinnedTabs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arcify_pinned_tabs",
			Help: "Tab handles in bookmark-backed lists",
		}),
		TemporaryTabs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arcify_temporary_tabs",
			Help: "Tab handles in temporary lists",
		}),
		Persists: factory.NewCounter(prometheus.CounterOpts{
			Name: "arcify_registry_persists_total",
			Help: "Write-through persists of the space registry",
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arcify_http_requests_total",
			Help: "HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arcify_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arcify_ws_connections",
			Help: "Live host bridge connections",
		}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arcify_ws_messages_total",
			Help: "Host bridge messages by direction",
		}, []string{"direction"}),
	}
}

// UpdateRegistry refreshes the registry gauges from a stats snapshot.
func (m *Metrics) UpdateRegistry(spaces, pinned, temporary int) {
	m.SpacesActive.Set(float64(spaces))
	m.PinnedTabs.Set(float64(pinned))
	m.TemporaryTabs.Set(float64(temporary))
}
