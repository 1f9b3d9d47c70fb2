package metrics

import (
	"time"

	"mercator-hq/underwriter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks API requests.
type HTTPMetrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of API requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of API requests in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"route"},
		),
	}
	registry.MustRegister(hm.requestsTotal, hm.duration)
	return hm
}

// RecordRequest records a served request.
func (hm *HTTPMetrics) RecordRequest(route, method, code string, duration time.Duration) {
	hm.requestsTotal.WithLabelValues(route, method, code).Inc()
	hm.duration.WithLabelValues(route).Observe(duration.Seconds())
}

// AuditMetrics tracks decision record persistence.
type AuditMetrics struct {
	writesTotal *prometheus.CounterVec
	pruned      prometheus.Counter
}

// NewAuditMetrics creates and registers audit metrics.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_writes_total",
				Help:      "Total number of decision record writes by status",
			},
			[]string{"status"},
		),
		pruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_pruned_total",
				Help:      "Total number of decision records removed by retention",
			},
		),
	}
	registry.MustRegister(am.writesTotal, am.pruned)
	return am
}

// RecordWrite records one write attempt.
func (am *AuditMetrics) RecordWrite(status string) {
	am.writesTotal.WithLabelValues(status).Inc()
}

// RecordPrune records pruned records.
func (am *AuditMetrics) RecordPrune(deleted int64) {
	if deleted > 0 {
		am.pruned.Add(float64(deleted))
	}
}
