package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/underwriter/pkg/telemetry/logging"
)

func TestAuthenticate(t *testing.T) {
	keys := NewKeySet([]APIKey{
		{Key: "k-acme", Organization: "acme", Enabled: true},
		{Key: "k-open", Enabled: true},
		{Key: "k-off", Organization: "acme", Enabled: false},
		{Key: ""},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		apiKey     string
		bearer     string
		headerOrg  string
		wantStatus int
		wantOrg    string
	}{
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "unknown", apiKey: "nope", wantStatus: http.StatusUnauthorized},
		{name: "disabled", apiKey: "k-off", wantStatus: http.StatusUnauthorized},
		{name: "header key", apiKey: "k-acme", wantStatus: http.StatusOK, wantOrg: "acme"},
		{name: "bearer key", bearer: "k-acme", wantStatus: http.StatusOK, wantOrg: "acme"},
		{name: "key organization wins", apiKey: "k-acme", headerOrg: "other", wantStatus: http.StatusOK, wantOrg: "acme"},
		{name: "unbound key keeps header", apiKey: "k-open", headerOrg: "other", wantStatus: http.StatusOK, wantOrg: "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOrg string
			h := RequestID(Authenticate(keys, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotOrg = logging.GetOrganization(r.Context())
			})))

			req := httptest.NewRequest(http.MethodPost, "/v1/decisions", nil)
			if tt.apiKey != "" {
				req.Header.Set(APIKeyHeader, tt.apiKey)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			if tt.headerOrg != "" {
				req.Header.Set(OrganizationHeader, tt.headerOrg)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
			if gotOrg != tt.wantOrg {
				t.Errorf("organization = %q, want %q", gotOrg, tt.wantOrg)
			}
		})
	}
}

func TestKeySet_EmptyKeyNeverMatches(t *testing.T) {
	keys := NewKeySet([]APIKey{{Key: "", Enabled: true}})
	if _, err := keys.Validate(""); err == nil {
		t.Fatal("empty key validated")
	}
}
