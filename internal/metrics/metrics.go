// Package metrics exposes engine counters to Prometheus.
//
// A nil *Metrics is valid and records nothing, so the engine can call it
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "arbor"

// Pass outcomes used as the "outcome" label.
const (
	OutcomeCommitted = "committed"
	OutcomeYielded   = "yielded"
	OutcomeAbandoned = "abandoned"
	OutcomeFailed    = "failed"
)

// Metrics holds the engine collectors.
type Metrics struct {
	passes         *prometheus.CounterVec
	units          prometheus.Counter
	mutations      *prometheus.CounterVec
	commitDuration prometheus.Histogram
	pending        prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "passes_total",
				Help:      "Scheduling passes by outcome.",
			},
			[]string{"outcome"},
		),
		units: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "units_total",
			Help:      "Units of work performed by the work loop.",
		}),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "mutations_total",
				Help:      "Applied mutations by effect.",
			},
			[]string{"effect"},
		),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "commit_duration_seconds",
			Help:      "Duration of the commit phase in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "pending_updates",
			Help:      "Updates waiting for a pass.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.passes, m.units, m.mutations, m.commitDuration, m.pending)
	}
	return m
}

// ObservePass counts one pass with the given outcome.
func (m *Metrics) ObservePass(outcome string) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(outcome).Inc()
}

// AddUnits counts units of work.
func (m *Metrics) AddUnits(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.units.Add(float64(n))
}

// ObserveMutation counts one applied effect flag, e.g. "create".
func (m *Metrics) ObserveMutation(effect string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(effect).Inc()
}

// ObserveCommit records the duration of a commit.
func (m *Metrics) ObserveCommit(d time.Duration) {
	if m == nil {
		return
	}
	m.commitDuration.Observe(d.Seconds())
}

// SetPending records the number of pending updates.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}
