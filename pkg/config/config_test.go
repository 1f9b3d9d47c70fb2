package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "underwriter.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"listen address", cfg.Server.ListenAddress, DefaultListenAddress},
		{"strategy source", cfg.Strategy.Source, "file"},
		{"audit enabled", cfg.Audit.Enabled, true},
		{"audit backend", cfg.Audit.Backend, "sqlite"},
		{"retention days", cfg.Audit.Retention.Days, 90},
		{"prune schedule", cfg.Audit.Retention.PruneSchedule, "0 3 * * *"},
		{"redact pii", cfg.Telemetry.Logging.RedactPII, true},
		{"metrics enabled", cfg.Telemetry.Metrics.Enabled, true},
		{"metrics subsystem", cfg.Telemetry.Metrics.Subsystem, "underwriter"},
		{"tracing enabled", cfg.Telemetry.Tracing.Enabled, false},
		{"otlp insecure", cfg.Telemetry.Tracing.OTLP.Insecure, true},
		{"integration timeout", cfg.Engine.IntegrationTimeout, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "60s"

strategy:
  source: file
  path: ./testdata/strategies
  organization: acme
  names: [personal_loan, auto_loan]
  watch: true

audit:
  enabled: false

telemetry:
  logging:
    level: debug
    format: text
    redact_pii: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("write timeout default not applied: %v", cfg.Server.WriteTimeout)
	}
	if !slices.Equal(cfg.Strategy.Names, []string{"personal_loan", "auto_loan"}) {
		t.Errorf("names = %v", cfg.Strategy.Names)
	}
	if !cfg.Strategy.Watch || cfg.Strategy.Organization != "acme" {
		t.Errorf("strategy = %+v", cfg.Strategy)
	}
	if cfg.Audit.Enabled {
		t.Error("audit.enabled: false was overridden by the default")
	}
	if cfg.Telemetry.Logging.RedactPII {
		t.Error("redact_pii: false was overridden by the default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should stay enabled by default")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{name: "bad source", content: "strategy:\n  source: git\n", field: "strategy.source"},
		{name: "bad level", content: "telemetry:\n  logging:\n    level: verbose\n", field: "telemetry.logging.level"},
		{name: "bad cron", content: "audit:\n  retention:\n    prune_schedule: \"every day\"\n", field: "audit.retention.prune_schedule"},
		{name: "bad backend", content: "audit:\n  backend: postgres\n", field: "audit.backend"},
		{name: "tracing without endpoint", content: "telemetry:\n  tracing:\n    enabled: true\n", field: "telemetry.tracing.endpoint"},
		{name: "sqlite watch", content: "strategy:\n  source: sqlite\n  watch: true\n", field: "strategy.watch"},
		{name: "auth without keys", content: "server:\n  auth:\n    enabled: true\n", field: "server.auth.keys"},
		{name: "auth empty key", content: "server:\n  auth:\n    enabled: true\n    keys:\n      - organization: acme\n", field: "server.auth.keys[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if !slices.Contains(verr.Fields(), tt.field) {
				t.Errorf("fields = %v, want %s", verr.Fields(), tt.field)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() error = nil for missing file")
	}
	if _, err := LoadConfig(writeConfig(t, "server: [")); err == nil {
		t.Error("LoadConfig() error = nil for malformed YAML")
	}
}

func TestAPIKeyConfig_Secret(t *testing.T) {
	t.Setenv("UNDERWRITER_TEST_KEY", "from-env")

	tests := []struct {
		name string
		key  APIKeyConfig
		want string
	}{
		{name: "inline", key: APIKeyConfig{Key: "inline", KeyEnv: "UNDERWRITER_TEST_KEY"}, want: "inline"},
		{name: "env", key: APIKeyConfig{KeyEnv: "UNDERWRITER_TEST_KEY"}, want: "from-env"},
		{name: "unset", key: APIKeyConfig{KeyEnv: "UNDERWRITER_TEST_KEY_MISSING"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.Secret(); got != tt.want {
				t.Errorf("Secret() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:8080\"\n")

	t.Setenv("UNDERWRITER_SERVER_LISTEN_ADDRESS", ":9999")
	t.Setenv("UNDERWRITER_STRATEGY_NAMES", "personal_loan, auto_loan")
	t.Setenv("UNDERWRITER_STRATEGY_WATCH", "true")
	t.Setenv("UNDERWRITER_AUDIT_BACKEND", "memory")
	t.Setenv("UNDERWRITER_ENGINE_INTEGRATION_TIMEOUT", "3s")
	t.Setenv("UNDERWRITER_TELEMETRY_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("UNDERWRITER_SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Server.ListenAddress != ":9999" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if !slices.Equal(cfg.Strategy.Names, []string{"personal_loan", "auto_loan"}) {
		t.Errorf("names = %v", cfg.Strategy.Names)
	}
	if !cfg.Strategy.Watch || cfg.Audit.Backend != "memory" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Strategy, cfg.Audit)
	}
	if cfg.Engine.IntegrationTimeout != 3*time.Second {
		t.Errorf("integration timeout = %v", cfg.Engine.IntegrationTimeout)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("sample ratio = %v", cfg.Telemetry.Tracing.SampleRatio)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("invalid override changed read timeout to %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("UNDERWRITER_TELEMETRY_LOGGING_FORMAT", "xml")

	if _, err := LoadConfigWithEnvOverrides(""); err == nil {
		t.Error("expected validation error after override")
	}
}

func TestSingleton(t *testing.T) {
	reset()
	t.Cleanup(reset)

	if GetConfig() != nil {
		t.Fatal("GetConfig() before Initialize should be nil")
	}

	first := writeConfig(t, "server:\n  listen_address: \":1111\"\n")
	second := writeConfig(t, "server:\n  listen_address: \":2222\"\n")

	if err := Initialize(first); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := Initialize(second); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	if got := MustGetConfig().Server.ListenAddress; got != ":1111" {
		t.Errorf("listen address = %q, want :1111", got)
	}

	if err := ReloadConfig(second); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if got := GetConfig().Server.ListenAddress; got != ":2222" {
		t.Errorf("after reload = %q, want :2222", got)
	}

	if err := ReloadConfig(writeConfig(t, "strategy:\n  source: git\n")); err == nil {
		t.Error("ReloadConfig() accepted invalid configuration")
	}
	if got := GetConfig().Server.ListenAddress; got != ":2222" {
		t.Errorf("failed reload replaced configuration: %q", got)
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	reset()
	t.Cleanup(reset)

	defer func() {
		if recover() == nil {
			t.Error("MustGetConfig() did not panic")
		}
	}()
	MustGetConfig()
}
