package metrics

import (
	"time"

	"mercator-hq/underwriter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CompileMetrics tracks engine set builds.
type CompileMetrics struct {
	compilesTotal *prometheus.CounterVec
	duration      prometheus.Histogram
	enginesLoaded prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewCompileMetrics creates and registers compile metrics.
func NewCompileMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CompileMetrics {
	cm := &CompileMetrics{
		compilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compiles_total",
				Help:      "Total number of engine set builds by status",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compile_duration_seconds",
				Help:      "Duration of engine set builds in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		enginesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engines_loaded",
				Help:      "Number of engines in the active engine set",
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "last_compile_success_timestamp_seconds",
				Help:      "Unix time of the last successful engine set build",
			},
		),
	}
	registry.MustRegister(cm.compilesTotal, cm.duration, cm.enginesLoaded, cm.lastSuccess)
	return cm
}

// RecordCompile records a build. A failed build leaves the engine gauge
// untouched since the previous set stays active.
func (cm *CompileMetrics) RecordCompile(engines int, duration time.Duration, err error) {
	cm.duration.Observe(duration.Seconds())
	if err != nil {
		cm.compilesTotal.WithLabelValues("error").Inc()
		return
	}
	cm.compilesTotal.WithLabelValues("success").Inc()
	cm.enginesLoaded.Set(float64(engines))
	cm.lastSuccess.SetToCurrentTime()
}
