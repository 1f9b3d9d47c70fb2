package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/underwriter/pkg/telemetry/logging"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		org     string
		wantID  string
		wantOrg string
	}{
		{name: "propagated", header: "client-id", wantID: "client-id"},
		{name: "generated"},
		{name: "organization", header: "x", org: "acme", wantID: "x", wantOrg: "acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID, gotOrg string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID = logging.GetRequestID(r.Context())
				gotOrg = logging.GetOrganization(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			if tt.org != "" {
				req.Header.Set(OrganizationHeader, tt.org)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if tt.wantID != "" && gotID != tt.wantID {
				t.Errorf("context request ID = %q, want %q", gotID, tt.wantID)
			}
			if tt.wantID == "" && len(gotID) != 36 {
				t.Errorf("generated request ID = %q", gotID)
			}
			if rec.Header().Get(RequestIDHeader) != gotID {
				t.Errorf("response header = %q, context = %q", rec.Header().Get(RequestIDHeader), gotID)
			}
			if gotOrg != tt.wantOrg {
				t.Errorf("organization = %q, want %q", gotOrg, tt.wantOrg)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/decisions", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("panic value leaked to the client")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

type observed struct {
	route  string
	status int
}

type observerFunc func(route, method string, status int, d time.Duration)

func (f observerFunc) ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	f(route, method, status, d)
}

func TestLoggingAndInstrument(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var got []observed
	obs := observerFunc(func(route, _ string, status int, _ time.Duration) {
		got = append(got, observed{route, status})
	})

	h := Logging(logger)(Instrument("/v1/decisions", obs)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/decisions", nil))

	if len(got) != 1 || got[0] != (observed{"/v1/decisions", http.StatusUnprocessableEntity}) {
		t.Errorf("observed = %+v", got)
	}
	if !strings.Contains(buf.String(), `"level":"WARN"`) || !strings.Contains(buf.String(), `"status":422`) {
		t.Errorf("log line = %s", buf.String())
	}
}

func TestInstrument_NilObserver(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	h := Instrument("/", nil)(next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
}
