package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "firebrands"

// Metrics groups the service counters. A nil *Metrics is valid and records
// nothing, which keeps tests and tools free of registry plumbing.
type Metrics struct {
	registry *prometheus.Registry

	GameTransitions *prometheus.CounterVec
	Claims          *prometheus.CounterVec
	LedgerDeltas    *prometheus.CounterVec
	TransitionRetry prometheus.Counter
	AuditMismatches prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		GameTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "transitions_total",
			Help:      "Game actions by action and outcome.",
		}, []string{"action", "result"}),
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "requests_total",
			Help:      "Daily claim attempts by outcome.",
		}, []string{"result"}),
		LedgerDeltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "deltas_total",
			Help:      "Applied balance changes by reason.",
		}, []string{"reason"}),
		TransitionRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "game",
			Name:      "transition_retries_total",
			Help:      "Transitions retried after a concurrent version change.",
		}),
		AuditMismatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "mismatches",
			Help:      "Inconsistencies found by the last reconciliation run.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.GameTransitions,
		m.Claims,
		m.LedgerDeltas,
		m.TransitionRetry,
		m.AuditMismatches,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Transition(action string, err error) {
	if m == nil {
		return
	}
	m.GameTransitions.WithLabelValues(action, Outcome(err)).Inc()
}

func (m *Metrics) Claim(err error) {
	if m == nil {
		return
	}
	m.Claims.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) LedgerDelta(reason string) {
	if m == nil {
		return
	}
	m.LedgerDeltas.WithLabelValues(reason).Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.TransitionRetry.Inc()
}

func (m *Metrics) AuditResult(mismatches int) {
	if m == nil {
		return
	}
	m.AuditMismatches.Set(float64(mismatches))
}
