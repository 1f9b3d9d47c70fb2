package metrics

import (
	"time"

	"mercator-hq/underwriter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StageMetrics tracks individual stage runs.
type StageMetrics struct {
	runsTotal *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewStageMetrics creates and registers stage metrics.
func NewStageMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StageMetrics {
	sm := &StageMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stage_runs_total",
				Help:      "Total number of stage runs by engine, stage type and outcome",
			},
			[]string{"engine", "stage", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stage_duration_seconds",
				Help:      "Duration of stage runs in seconds",
				// Rule stages finish in microseconds; integrations take longer.
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"stage"},
		),
	}
	registry.MustRegister(sm.runsTotal, sm.duration)
	return sm
}

// RecordStage records one stage run.
func (sm *StageMetrics) RecordStage(engine, stage, outcome string, duration time.Duration) {
	sm.runsTotal.WithLabelValues(engine, stage, outcome).Inc()
	sm.duration.WithLabelValues(stage).Observe(duration.Seconds())
}
