// Package metrics exposes Prometheus instrumentation for engine runs.
//
// Instrumentation is additive observability: counters and histograms are
// incremented after decisions are made and can never alter a result.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SolvesTotal counts completed engine runs by outcome.
	SolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formcast_solves_total",
		Help: "Completed plan solves, labeled by outcome (ok, config_error, invariant_error).",
	}, []string{"outcome"})

	// CandidatesEvaluated counts candidate evaluations across all steps.
	CandidatesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formcast_candidates_evaluated_total",
		Help: "Candidate actions evaluated by the optimizer.",
	})

	// CandidatesPruned counts candidates discarded with -Inf scores.
	CandidatesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formcast_candidates_pruned_total",
		Help: "Candidate actions pruned for rail violations or degenerate scores.",
	})

	// RailViolations counts absolute-rail breaches observed during
	// candidate evaluation.
	RailViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formcast_rail_violations_total",
		Help: "Absolute safety-rail violations detected in candidate trajectories.",
	})

	// SolveDuration observes end-to-end solve latency.
	SolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "formcast_solve_duration_seconds",
		Help:    "End-to-end plan solve duration.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)
