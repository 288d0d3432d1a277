// Package metrics exports Prometheus counters and histograms for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build independent instances.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.HistogramVec
	queries       *prometheus.HistogramVec
	registrations *prometheus.CounterVec
	checkIns      prometheus.Counter
	diplomas      *prometheus.CounterVec
	emails        *prometheus.CounterVec
	outbox        *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
// POST: Returned Metrics is ready; Handler exposes it in text format
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "congress",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		queries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "congress",
			Name:      "db_query_duration_seconds",
			Help:      "SQL statement latency by statement kind.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"kind"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "congress",
			Name:      "registrations_total",
			Help:      "Registration attempts per activity by outcome (created, skipped).",
		}, []string{"outcome"}),
		checkIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "congress",
			Name:      "attendance_confirmations_total",
			Help:      "Redeemed attendance tokens.",
		}),
		diplomas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "congress",
			Name:      "diplomas_total",
			Help:      "Diploma pipeline runs by kind (participation, winner) and outcome.",
		}, []string{"kind", "outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "congress",
			Name:      "emails_total",
			Help:      "Outgoing emails by template and outcome (sent, failed).",
		}, []string{"template", "outcome"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "congress",
			Name:      "outbox_attempts_total",
			Help:      "Outbox retry attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.queries, m.registrations, m.checkIns, m.diplomas, m.emails, m.outbox,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one HTTP request. route should be the matched pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveQuery records one SQL statement.
func (m *Metrics) ObserveQuery(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(kind).Observe(d.Seconds())
}

// Registration counts one per-activity registration outcome.
func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// CheckIn counts one redeemed token.
func (m *Metrics) CheckIn() {
	if m == nil {
		return
	}
	m.checkIns.Inc()
}

// Diploma counts one diploma pipeline run.
func (m *Metrics) Diploma(kind, outcome string) {
	if m == nil {
		return
	}
	m.diplomas.WithLabelValues(kind, outcome).Inc()
}

// Email counts one send attempt.
func (m *Metrics) Email(template string, sent bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	m.emails.WithLabelValues(template, outcome).Inc()
}

// OutboxAttempt counts one retry processed by the outbox worker.
func (m *Metrics) OutboxAttempt(outcome string) {
	if m == nil {
		return
	}
	m.outbox.WithLabelValues(outcome).Inc()
}
