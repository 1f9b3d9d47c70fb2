// Package tracing configures OpenTelemetry for the underwriter.
//
// New installs an SDK tracer provider exporting over OTLP/gRPC, or a noop
// provider when tracing is disabled. The pipeline and orchestrator take a
// trace.Tracer from Tracer.Tracer; the HTTP server wraps routes with
// HTTPMiddleware so decisions join the caller's trace, and data integration
// requests carry the trace context onward through Inject.
//
// Sampling is one of "always", "never" or "ratio", always wrapped in a
// parent-based sampler.
package tracing
