// Package metrics holds the Prometheus instruments of the viewer backend.
//
// Instruments are registered on a caller supplied registry so tests can
// build isolated instances.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ageviewer"

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics groups every instrument.
type Metrics struct {
	registry *prometheus.Registry

	// QueriesTotal counts statements by flavor and status.
	QueriesTotal *prometheus.CounterVec

	// QueryDurationSeconds measures statement latency by flavor.
	QueryDurationSeconds *prometheus.HistogramVec

	// ConnectsTotal counts connection attempts by flavor and status.
	ConnectsTotal *prometheus.CounterVec

	// ActiveSessions is the number of sessions holding a connection.
	ActiveSessions prometheus.Gauge

	// HTTPRequestsTotal counts requests by route and status code.
	HTTPRequestsTotal *prometheus.CounterVec
}

// New registers the instruments on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Statements executed by flavor and status",
			},
			[]string{"flavor", "status"},
		),
		QueryDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Statement latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"flavor"},
		),
		ConnectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connects_total",
				Help:      "Connection attempts by flavor and status",
			},
			[]string{"flavor", "status"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Browser sessions holding a database connection",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
}

// ObserveQuery records one statement. Safe on a nil receiver.
func (m *Metrics) ObserveQuery(flavor string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(flavor, status(err)).Inc()
	m.QueryDurationSeconds.WithLabelValues(flavor).Observe(elapsed.Seconds())
}

// ObserveConnect records one connection attempt. Safe on a nil receiver.
func (m *Metrics) ObserveConnect(flavor string, err error) {
	if m == nil {
		return
	}
	m.ConnectsTotal.WithLabelValues(flavor, status(err)).Inc()
}

// SetActiveSessions updates the session gauge. Safe on a nil receiver.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
