// Package metrics exposes parkd's Prometheus collectors on a separate
// admin listener, kept apart from the hand-built API transport.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/parkd-io/parkd/internal/lot"
)

// Metrics implements httpd.Metrics and owns the lot occupancy gauges.
type Metrics struct {
	registry *prometheus.Registry

	connsAccepted prometheus.Counter
	connsRejected prometheus.Counter
	requests      *prometheus.CounterVec
}

// New registers all collectors against a fresh registry. The occupancy
// gauges read the lot live on every scrape.
func New(l *lot.Lot) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkd_connections_accepted_total",
			Help: "Connections admitted past the in-flight gate.",
		}),
		connsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkd_connections_rejected_total",
			Help: "Connections answered 503 at the gate.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkd_requests_total",
			Help: "Requests served, by response status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.connsAccepted,
		m.connsRejected,
		m.requests,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parkd_spaces_occupied",
			Help: "Spaces currently held by present vehicles.",
		}, func() float64 { return float64(l.OccupiedCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parkd_spaces_available",
			Help: "Spaces currently free.",
		}, func() float64 { return float64(l.AvailableCount()) }),
	)
	return m
}

// ConnAccepted counts a connection handed to the worker pool.
func (m *Metrics) ConnAccepted() { m.connsAccepted.Inc() }

// ConnRejected counts a connection answered 503 at the gate.
func (m *Metrics) ConnRejected() { m.connsRejected.Inc() }

// RequestServed counts a completed request by status code.
func (m *Metrics) RequestServed(status int) {
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Serve exposes /metrics on addr. It blocks; run it on its own goroutine.
func (m *Metrics) Serve(addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	logger.Info().Str("addr", addr).Msg("metrics listener started")
	return http.ListenAndServe(addr, mux)
}
