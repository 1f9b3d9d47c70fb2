package metrics

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/underwriter/pkg/config"
	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/strategy"

	"github.com/prometheus/client_golang/prometheus"
)

// overflowLabel replaces engine names once the cardinality limit is hit.
const overflowLabel = "other"

// Collector owns every Prometheus metric of the underwriter. It satisfies
// pipeline.Observer and the orchestrator's evaluation and compile observers,
// so a single instance is handed to the runner and the orchestrator.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	decisions *DecisionMetrics
	stages    *StageMetrics
	compiles  *CompileMetrics
	http      *HTTPMetrics
	audit     *AuditMetrics

	engines *CardinalityLimiter
}

// NewCollector registers all metrics with registry. A nil registry gets a
// fresh one so tests never collide on the global default.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	runner := pipeline.NewRunner(compiler, pipeline.WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		decisions: NewDecisionMetrics(cfg, registry),
		stages:    NewStageMetrics(cfg, registry),
		compiles:  NewCompileMetrics(cfg, registry),
		http:      NewHTTPMetrics(cfg, registry),
		audit:     NewAuditMetrics(cfg, registry),
		engines:   NewCardinalityLimiter(500),
	}
}

func (c *Collector) engineLabel(engine string) string {
	if c.engines.Allow(engine) {
		return engine
	}
	return overflowLabel
}

// ObserveStage records one stage run of an engine pipeline.
func (c *Collector) ObserveStage(engine string, stage strategy.StageType, outcome pipeline.OutcomeKind, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.stages.RecordStage(c.engineLabel(engine), string(stage), outcome.String(), duration)
}

// ObserveDecision records the final decision of one engine pipeline.
func (c *Collector) ObserveDecision(engine, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.decisions.RecordEngineDecision(c.engineLabel(engine), outcome, duration)
}

// ObserveEvaluation records one orchestrated evaluation across all matched
// engines.
func (c *Collector) ObserveEvaluation(outcome string, engines int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.decisions.RecordEvaluation(outcome, engines, duration)
}

// ObserveCompile records an engine set build.
func (c *Collector) ObserveCompile(engines int, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.compiles.RecordCompile(engines, duration, err)
}

// ObserveHTTPRequest records a served API request.
func (c *Collector) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.http.RecordRequest(route, method, fmt.Sprintf("%d", status), duration)
}

// ObserveAuditWrite records the result of persisting a decision record.
// Status is one of "stored", "failed" or "dropped".
func (c *Collector) ObserveAuditWrite(status string) {
	if !c.config.Enabled {
		return
	}
	c.audit.RecordWrite(status)
}

// ObserveAuditPrune records records removed by retention.
func (c *Collector) ObserveAuditPrune(deleted int64) {
	if !c.config.Enabled {
		return
	}
	c.audit.RecordPrune(deleted)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct values admitted for a
// label. Values seen before the cap is reached stay admitted.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label value.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
