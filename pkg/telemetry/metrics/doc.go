// Package metrics exposes Prometheus metrics for the underwriter.
//
// A Collector is created once at startup and passed as the observer to the
// pipeline runner, the orchestrator, the audit recorder and the HTTP server.
// All metric names are prefixed with the configured namespace and subsystem
// (mercator_underwriter_ by default):
//
//   - evaluations_total{outcome} and evaluation_duration_seconds
//   - engines_matched
//   - engine_decisions_total{engine,outcome}
//   - stage_runs_total{engine,stage,outcome} and stage_duration_seconds{stage}
//   - compiles_total{status}, compile_duration_seconds, engines_loaded
//   - http_requests_total{route,method,code}
//   - audit_writes_total{status} and audit_pruned_total
//
// Engine labels are capped by a CardinalityLimiter; names beyond the cap
// are reported as "other".
package metrics
