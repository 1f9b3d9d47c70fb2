package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/underwriter/pkg/evaluators"
	"mercator-hq/underwriter/pkg/orchestrator"
	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/store"
	"mercator-hq/underwriter/pkg/strategy"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name: "all pass",
			checks: map[string]CheckFunc{
				"audit":      Ping(pingFunc(func(context.Context) error { return nil })),
				"strategies": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one fails",
			checks: map[string]CheckFunc{
				"audit":      Ping(pingFunc(func(context.Context) error { return errors.New("database is locked") })),
				"strategies": func(context.Context) error { return nil },
			},
			wantStatus: StatusNotReady,
			wantFailed: "audit",
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			wantStatus: StatusNotReady,
			wantFailed: "slow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(20 * time.Millisecond)
			for name, fn := range tt.checks {
				c.Register(name, fn)
			}
			report := c.Readiness(context.Background())
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", report.Status, tt.wantStatus)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(report.Checks), len(tt.checks))
			}
			if tt.wantFailed != "" && report.Checks[tt.wantFailed].Status != StatusUnhealthy {
				t.Errorf("check %q = %+v, want unhealthy", tt.wantFailed, report.Checks[tt.wantFailed])
			}
		})
	}
}

func TestChecker_RegisterReplaces(t *testing.T) {
	c := New(0)
	c.Register("a", func(context.Context) error { return errors.New("x") })
	c.Register("b", func(context.Context) error { return nil })
	c.Register("a", func(context.Context) error { return nil })

	names := c.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
	if !c.Readiness(context.Background()).Ready() {
		t.Error("replacement check not used")
	}
}

func TestEnginesLoaded(t *testing.T) {
	cfg := &strategy.EngineConfig{
		Name:         "personal_loan.v1",
		Organization: "acme",
		Stages: []strategy.StageConfig{{
			Type: strategy.StageAssignments,
			Name: "assignments_module",
			Segments: []strategy.SegmentConfig{{
				Name:    "segment_one",
				Ruleset: []strategy.Rule{{Name: "assign", Output: "product", Value: "personal"}},
			}},
		}},
	}
	runner := pipeline.NewRunner(pipeline.NewCompiler(evaluators.Defaults(nil)))
	cache := orchestrator.NewEngineCache(store.NewMemoryStore(cfg), runner, nil)

	check := EnginesLoaded(cache)
	if err := check(context.Background()); !errors.Is(err, ErrNoEngines) {
		t.Fatalf("before compile error = %v, want ErrNoEngines", err)
	}
	if _, err := cache.Compile(context.Background(), true); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := check(context.Background()); err != nil {
		t.Errorf("after compile error = %v", err)
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	c.Register("strategies", func(context.Context) error { return ErrNoEngines })

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		method   string
		wantCode int
		wantBody string
	}{
		{"liveness", c.LivenessHandler(), http.MethodGet, http.StatusOK, StatusOK},
		{"readiness not ready", c.ReadinessHandler(), http.MethodGet, http.StatusServiceUnavailable, StatusNotReady},
		{"liveness post", c.LivenessHandler(), http.MethodPost, http.StatusMethodNotAllowed, ""},
		{"version", VersionHandler("1.0.0", "abc", "now"), http.MethodGet, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(tt.method, "/", nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody == "" {
				return
			}
			var body Report
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("status = %q, want %q", body.Status, tt.wantBody)
			}
		})
	}
}
