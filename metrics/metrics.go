// Package metrics exposes Prometheus instrumentation for workflow
// executions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors recorded by the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Hops         *prometheus.CounterVec
	HopDuration  *prometheus.HistogramVec
	Suspensions  *prometheus.CounterVec
	Resumptions  *prometheus.CounterVec
	Terminations *prometheus.CounterVec
	Failures     *prometheus.CounterVec
}

// New registers the relay collectors on reg. Passing nil registers them on
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Hops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_hops_total",
				Help: "Total number of participant invocations by workflow and participant",
			},
			[]string{"workflow", "participant"},
		),
		HopDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_hop_duration_seconds",
				Help:    "Duration of a single routing hop in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"workflow"},
		),
		Suspensions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_suspensions_total",
				Help: "Total number of executions suspended for external input",
			},
			[]string{"workflow"},
		),
		Resumptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_resumptions_total",
				Help: "Total number of suspended executions resumed by a response",
			},
			[]string{"workflow"},
		),
		Terminations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_terminations_total",
				Help: "Total number of terminated executions by reason",
			},
			[]string{"workflow", "reason"},
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_failures_total",
				Help: "Total number of failed hops by error kind",
			},
			[]string{"workflow", "kind"},
		),
	}
}

// RecordHop records one participant invocation.
func (m *Metrics) RecordHop(workflow, participant string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Hops.WithLabelValues(workflow, participant).Inc()
	m.HopDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordSuspension records an execution pausing for external input.
func (m *Metrics) RecordSuspension(workflow string) {
	if m == nil {
		return
	}
	m.Suspensions.WithLabelValues(workflow).Inc()
}

// RecordResumption records a response being accepted.
func (m *Metrics) RecordResumption(workflow string) {
	if m == nil {
		return
	}
	m.Resumptions.WithLabelValues(workflow).Inc()
}

// RecordTermination records a terminal state.
func (m *Metrics) RecordTermination(workflow, reason string) {
	if m == nil {
		return
	}
	m.Terminations.WithLabelValues(workflow, reason).Inc()
}

// RecordFailure records a failed hop. kind is a short error class such as
// "parse" or "invocation".
func (m *Metrics) RecordFailure(workflow, kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(workflow, kind).Inc()
}
