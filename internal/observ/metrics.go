package observ

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the service. They live in a
// private registry so building Metrics twice (tests) never panics on
// duplicate registration.
type Metrics struct {
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	numbers         *prometheus.CounterVec
	denials         *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unionline_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unionline_status_transitions_total",
				Help: "Status changes applied, by entity kind and target status.",
			},
			[]string{"kind", "to"},
		),
		numbers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unionline_reference_numbers_allocated_total",
				Help: "Reference numbers committed, by kind.",
			},
			[]string{"kind"},
		),
		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unionline_access_denied_total",
				Help: "Authorization denials by failing rule.",
			},
			[]string{"rule"},
		),
	}
}

func (m *Metrics) RecordRequest(method, route, status string, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func (m *Metrics) StatusChanged(kind, to string) {
	m.transitions.WithLabelValues(kind, to).Inc()
}

func (m *Metrics) NumberAllocated(kind string) {
	m.numbers.WithLabelValues(kind).Inc()
}

func (m *Metrics) Denied(rule string) {
	m.denials.WithLabelValues(rule).Inc()
}
