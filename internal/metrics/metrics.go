// Package metrics provides Prometheus metrics for the catch-all service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// Body size buckets: 64 B up to 16 MiB.
var bodyBuckets = prometheus.ExponentialBuckets(64, 4, 10)

// Metrics holds all Prometheus metric collectors for the service.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	CapturedBodyBytes prometheus.Histogram
	CapturedBodies    *prometheus.CounterVec
	ClientResolutions *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catchall_api_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catchall_api_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catchall_api_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		CapturedBodyBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catchall_api_captured_body_bytes",
			Help:    "Size of captured request bodies in bytes.",
			Buckets: bodyBuckets,
		}),

		CapturedBodies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catchall_api_captured_bodies_total",
			Help: "Captured request bodies by kind (empty, json, raw).",
		}, []string{"kind"}),

		ClientResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catchall_api_client_resolutions_total",
			Help: "Client address resolutions by source (forwarded, peer, none).",
		}, []string{"source"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.CapturedBodyBytes,
		m.CapturedBodies,
		m.ClientResolutions,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// NormalizeRoute returns a bounded route label. Every path hits the catch-all,
// so the registered route template is used instead of the request path.
func NormalizeRoute(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}
