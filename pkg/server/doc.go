// Package server exposes the decision engine over HTTP.
//
// Routes:
//
//	POST /v1/decisions            evaluate an application record
//	POST /v1/strategies/reload    rebuild the engine set from storage
//	GET  /v1/strategies           list the loaded engines
//	GET  /v1/audit                page through recorded decisions
//	GET  /v1/audit/{id}           fetch one recorded decision
//	GET  /health, /ready          liveness and readiness endpoints
//	GET  /version                 build information
//	GET  /metrics                 Prometheus metrics
//
// A decision request body is a single JSON object, the application record.
// The response is the composite decision: 200 whether the applicant passed
// or was declined, 422 when no strategy's population conditions match the
// record, 500 when the strategies fail to compile.
//
// Errors share one envelope:
//
//	{"error": {"message": "...", "type": "invalid_request_error", "code": "invalid_json"}}
//
// Every response carries X-Request-ID, copied from the request or generated.
package server
