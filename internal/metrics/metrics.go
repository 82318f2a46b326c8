// Package metrics exposes Prometheus collectors for client traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Registry owns these metrics. Exposed so a /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	refreshesTotal  *prometheus.CounterVec
	skippedTotal    *prometheus.CounterVec
}

// New creates a dedicated registry and registers all client metrics in it.
// A private registry avoids duplicate registration when New is called more
// than once, as tests do.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splitwiser_request_duration_seconds",
				Help:    "Duration of API requests by endpoint.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitwiser_requests_total",
				Help: "Total API request attempts by method and status code.",
			},
			[]string{"method", "code"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitwiser_retries_total",
				Help: "Total request retries by reason.",
			},
			[]string{"reason"},
		),
		refreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitwiser_token_refreshes_total",
				Help: "Total access token refreshes by result.",
			},
			[]string{"result"},
		),
		skippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitwiser_skipped_records_total",
				Help: "Total malformed records dropped from API responses.",
			},
			[]string{"kind"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveRequest records one request attempt. code is the HTTP status code
// as a string, or "error" when no response was received.
func (m *Metrics) ObserveRequest(endpoint, method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	m.requestsTotal.WithLabelValues(method, code).Inc()
}

// RecordRetry counts a retry caused by reason ("network", "server", "unauthorized").
func (m *Metrics) RecordRetry(reason string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(reason).Inc()
}

// RecordRefresh counts a refresh call with result "success" or "failure".
func (m *Metrics) RecordRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshesTotal.WithLabelValues(result).Inc()
}

// RecordSkipped counts a dropped record of the given kind.
func (m *Metrics) RecordSkipped(kind string) {
	if m == nil {
		return
	}
	m.skippedTotal.WithLabelValues(kind).Inc()
}
