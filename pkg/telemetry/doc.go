// Package telemetry groups the underwriter's observability packages.
//
//   - logging: slog handler with request-scoped fields and PII masking
//   - metrics: Prometheus collector fed by the runner, orchestrator, audit
//     recorder and HTTP server
//   - tracing: OpenTelemetry tracer provider exporting over OTLP/gRPC
//   - health: liveness and readiness endpoints
//
// Each is configured from config.TelemetryConfig and wired in
// cmd/underwriter:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, registry)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//
// Applicant PII is masked before log records reach the handler:
//
//   - SSN: 123-45-6789 becomes ***-**-****
//   - Emails: user@example.com becomes u***@example.com
//   - Card numbers keep their last four digits
package telemetry
