package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"
	// OrganizationKey is the context key for the strategy organization.
	OrganizationKey contextKey = "organization"
	// EngineKey is the context key for the engine being evaluated.
	EngineKey contextKey = "engine"
	// ApplicationIDKey is the context key for the caller's application identifier.
	ApplicationIDKey contextKey = "application_id"
)

var contextKeys = []contextKey{RequestIDKey, OrganizationKey, EngineKey, ApplicationIDKey}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// WithOrganization adds the organization to the context.
func WithOrganization(ctx context.Context, org string) context.Context {
	return context.WithValue(ctx, OrganizationKey, org)
}

// GetOrganization retrieves the organization from the context.
func GetOrganization(ctx context.Context) string {
	return stringValue(ctx, OrganizationKey)
}

// WithEngine adds an engine name to the context.
func WithEngine(ctx context.Context, engine string) context.Context {
	return context.WithValue(ctx, EngineKey, engine)
}

// GetEngine retrieves the engine name from the context.
func GetEngine(ctx context.Context) string {
	return stringValue(ctx, EngineKey)
}

// WithApplicationID adds an application identifier to the context.
func WithApplicationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ApplicationIDKey, id)
}

// GetApplicationID retrieves the application identifier from the context.
func GetApplicationID(ctx context.Context) string {
	return stringValue(ctx, ApplicationIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// Fields returns the log attributes carried by ctx, including the active
// trace and span IDs when a span is recording.
func Fields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}
