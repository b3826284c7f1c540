// Package metrics registers the Prometheus metrics emitted by the conduit
// protocol engines. Importing any package that imports this one is enough
// to register the collectors on the default registry before a /metrics
// handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-level counters and histograms.
var (
	// RequestsTotal counts completed requests labelled by service, method,
	// and outcome ("success", "error", "recovered", "short_circuit").
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conduit_requests_total",
			Help: "Total number of requests executed through conduit protocols.",
		},
		[]string{"service", "method", "status"},
	)

	// RequestDuration observes end-to-end call latency in seconds,
	// including all interceptor phases.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conduit_request_duration_seconds",
			Help:    "End-to-end request duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method"},
	)

	// ShortCircuitsTotal counts requests answered by a plugin without a
	// transport call.
	ShortCircuitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conduit_short_circuits_total",
			Help: "Total requests short-circuited by a plugin.",
		},
		[]string{"service", "plugin"},
	)

	// PluginErrors counts interceptor hook failures by plugin token and
	// phase ("request", "response", "error", "connect").
	PluginErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conduit_plugin_errors_total",
			Help: "Total plugin hook failures by phase.",
		},
		[]string{"plugin", "phase"},
	)

	// ActiveStreams tracks currently open streaming connections per service.
	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conduit_active_streams",
			Help: "Currently open streaming connections.",
		},
		[]string{"service"},
	)

	// StreamEventsTotal counts events delivered to stream subscribers.
	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conduit_stream_events_total",
			Help: "Total stream events delivered to subscribers.",
		},
		[]string{"service"},
	)
)
