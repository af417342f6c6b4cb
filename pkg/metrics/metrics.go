// Package metrics exposes Prometheus instruments for the API. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkpay"

// Metrics groups the counters and gauges recorded by the service.
type Metrics struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	ledgerMutations  *prometheus.CounterVec
	pinFailures      prometheus.Counter
	requestsResolved *prometheus.CounterVec
	wsClients        prometheus.Gauge
	eventsDelivered  *prometheus.CounterVec
	eventsDropped    prometheus.Counter
	sweeperAffected  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the instruments and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ledgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Committed balance mutations, by source.",
		}, []string{"source"}),
		pinFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "pin_failures_total",
			Help:      "Rejected PIN authorizations.",
		}),
		requestsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "resolved_total",
			Help:      "Workflow requests moved out of pending, by kind and status.",
		}, []string{"kind", "status"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		}),
		eventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_delivered_total",
			Help:      "Events queued onto a live client channel, by type.",
		}, []string{"event"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a client send buffer was full.",
		}),
		sweeperAffected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "rows_total",
			Help:      "Rows changed by the maintenance sweeper, by task.",
		}, []string{"task"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.ledgerMutations,
		m.pinFailures,
		m.requestsResolved,
		m.wsClients,
		m.eventsDelivered,
		m.eventsDropped,
		m.sweeperAffected,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// LedgerMutation records a committed balance change.
func (m *Metrics) LedgerMutation(source string) {
	if m == nil {
		return
	}
	m.ledgerMutations.WithLabelValues(source).Inc()
}

// PinFailure records a rejected PIN.
func (m *Metrics) PinFailure() {
	if m == nil {
		return
	}
	m.pinFailures.Inc()
}

// RequestResolved records a request leaving the pending state.
func (m *Metrics) RequestResolved(kind, status string) {
	if m == nil {
		return
	}
	m.requestsResolved.WithLabelValues(kind, status).Inc()
}

// ClientConnected adjusts the live client gauge by delta.
func (m *Metrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}

// EventDelivered records an event queued to a client.
func (m *Metrics) EventDelivered(event string) {
	if m == nil {
		return
	}
	m.eventsDelivered.WithLabelValues(event).Inc()
}

// EventDropped records an event lost to a full buffer.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

// SweeperAffected records rows changed by a sweeper task.
func (m *Metrics) SweeperAffected(task string, rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.sweeperAffected.WithLabelValues(task).Add(float64(rows))
}
