package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"mercator-hq/underwriter/pkg/telemetry/logging"
)

// Request headers read by the API.
const (
	RequestIDHeader    = "X-Request-ID"
	OrganizationHeader = "X-Organization"
)

// RequestID propagates the client's X-Request-ID, or a new UUID when the
// header is absent, into the request context and the response headers.
// X-Organization, when present, is stored alongside it for logging and
// audit records.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		if org := r.Header.Get(OrganizationHeader); org != "" {
			ctx = logging.WithOrganization(ctx, org)
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
