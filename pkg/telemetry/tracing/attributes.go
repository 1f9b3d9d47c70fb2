package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by the service's spans.
const (
	AttrRequestID      = attribute.Key("underwriter.request_id")
	AttrOrganization   = attribute.Key("underwriter.organization")
	AttrEngine         = attribute.Key("underwriter.engine")
	AttrOutcome        = attribute.Key("underwriter.outcome")
	AttrEnginesMatched = attribute.Key("underwriter.engines_matched")
	AttrDeclineReasons = attribute.Key("underwriter.decline_reasons")
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrHTTPStatus     = attribute.Key("http.status_code")
)

// SetHTTPAttributes annotates a server span.
func SetHTTPAttributes(span trace.Span, method, route string) {
	span.SetAttributes(AttrHTTPMethod.String(method), AttrHTTPRoute.String(route))
}

// SetRequestAttributes annotates a span with the caller's identifiers.
// Empty values are skipped.
func SetRequestAttributes(span trace.Span, requestID, organization string) {
	attrs := make([]attribute.KeyValue, 0, 2)
	if requestID != "" {
		attrs = append(attrs, AttrRequestID.String(requestID))
	}
	if organization != "" {
		attrs = append(attrs, AttrOrganization.String(organization))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

// SetDecisionAttributes annotates a span with a composite outcome.
func SetDecisionAttributes(span trace.Span, outcome string, engines, declineReasons int) {
	span.SetAttributes(
		AttrOutcome.String(outcome),
		AttrEnginesMatched.Int(engines),
		AttrDeclineReasons.Int(declineReasons),
	)
}
