package metrics

import (
	"time"

	"mercator-hq/underwriter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks orchestrated evaluations and per-engine decisions.
//
// Metrics:
//   - evaluations_total{outcome}
//   - evaluation_duration_seconds
//   - engines_matched
//   - engine_decisions_total{engine,outcome}
//   - engine_decision_duration_seconds{engine}
type DecisionMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	enginesMatched     prometheus.Histogram
	engineDecisions    *prometheus.CounterVec
	engineDuration     *prometheus.HistogramVec
}

// NewDecisionMetrics creates and registers decision metrics.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of orchestrated evaluations by composite outcome",
			},
			[]string{"outcome"},
		),
		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of orchestrated evaluations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),
		enginesMatched: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engines_matched",
				Help:      "Number of engines whose population matched a record",
				Buckets:   []float64{0, 1, 2, 3, 5, 8},
			},
		),
		engineDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engine_decisions_total",
				Help:      "Total number of engine decisions by outcome",
			},
			[]string{"engine", "outcome"},
		),
		engineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engine_decision_duration_seconds",
				Help:      "Duration of a single engine pipeline in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"engine"},
		),
	}

	registry.MustRegister(
		dm.evaluationsTotal,
		dm.evaluationDuration,
		dm.enginesMatched,
		dm.engineDecisions,
		dm.engineDuration,
	)
	return dm
}

// RecordEvaluation records one orchestrated evaluation.
func (dm *DecisionMetrics) RecordEvaluation(outcome string, engines int, duration time.Duration) {
	dm.evaluationsTotal.WithLabelValues(outcome).Inc()
	dm.evaluationDuration.Observe(duration.Seconds())
	dm.enginesMatched.Observe(float64(engines))
}

// RecordEngineDecision records one engine decision.
func (dm *DecisionMetrics) RecordEngineDecision(engine, outcome string, duration time.Duration) {
	dm.engineDecisions.WithLabelValues(engine, outcome).Inc()
	dm.engineDuration.WithLabelValues(engine).Observe(duration.Seconds())
}
