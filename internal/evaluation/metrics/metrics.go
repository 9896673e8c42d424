package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the evaluation module.
type Metrics struct {
	// Evaluation outcomes by tier
	EvaluationOutcome *prometheus.CounterVec

	// Evaluations that could not run because no rule version was active
	NoActiveVersion prometheus.Counter

	// Overall evaluation latency including collaborator reads
	RunLatency prometheus.Histogram

	// Requirement-level statuses across all evaluations
	RequirementStatus *prometheus.CounterVec
}

// New creates a new Metrics instance with all evaluation module metrics registered.
func New() *Metrics {
	return &Metrics{
		EvaluationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "visado_evaluation_outcomes_total",
			Help: "Total evaluation outcomes by tier",
		}, []string{"outcome"}),

		NoActiveVersion: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visado_evaluation_no_active_version_total",
			Help: "Evaluations aborted because no published rule version was in force",
		}),

		RunLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "visado_evaluation_run_duration_seconds",
			Help:    "Duration of full evaluation runs including fact and rule loading",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		RequirementStatus: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "visado_evaluation_requirement_statuses_total",
			Help: "Requirement evaluation statuses across all runs",
		}, []string{"status"}),
	}
}

// IncrementOutcome records an evaluation outcome tier.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.EvaluationOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementNoActiveVersion records an evaluation aborted for lack of rules.
func (m *Metrics) IncrementNoActiveVersion() {
	if m != nil {
		m.NoActiveVersion.Inc()
	}
}

// ObserveRunLatency records the total evaluation duration.
func (m *Metrics) ObserveRunLatency(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}

// IncrementRequirementStatus records one requirement's evaluation status.
func (m *Metrics) IncrementRequirementStatus(status string) {
	if m != nil {
		m.RequirementStatus.WithLabelValues(status).Inc()
	}
}
