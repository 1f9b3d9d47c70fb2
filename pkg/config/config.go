package config

import "time"

// Config is the root configuration structure for the underwriter service.
type Config struct {
	// Server contains HTTP API server configuration including listen
	// address, timeouts and request limits.
	Server ServerConfig `yaml:"server"`

	// Strategy configures where strategy documents are loaded from and how
	// changes are picked up.
	Strategy StrategyConfig `yaml:"strategy"`

	// Engine contains compilation and evaluation settings.
	Engine EngineConfig `yaml:"engine"`

	// Audit contains configuration for decision audit storage including
	// backend selection and retention.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the size of an application record.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// Auth gates the /v1 API behind API keys.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig configures API key authentication.
type AuthConfig struct {
	// Enabled requires a valid key on every /v1 request. Health checks, /version
	// and the metrics endpoint stay open.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Keys lists the accepted credentials.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	// Key is the secret value. KeyEnv names an environment variable to read
	// it from instead.
	Key    string `yaml:"key"`
	KeyEnv string `yaml:"key_env"`

	// Organization binds requests made with this key to one organization.
	Organization string `yaml:"organization"`

	// Disabled keeps the key configured but rejects it.
	Disabled bool `yaml:"disabled"`
}

// StrategyConfig configures the strategy store.
type StrategyConfig struct {
	// Source selects the store backend.
	// Options: "file", "sqlite"
	// Default: "file"
	Source string `yaml:"source"`

	// Path is the strategy file or directory when Source is "file".
	// Default: "./strategies"
	Path string `yaml:"path"`

	// SQLitePath is the database path when Source is "sqlite".
	// Default: "data/strategies.db"
	SQLitePath string `yaml:"sqlite_path"`

	// Organization restricts loading to one organization. Empty loads all.
	Organization string `yaml:"organization"`

	// Names restricts loading to the listed strategies.
	Names []string `yaml:"names"`

	// IncludeInactive also loads strategies whose status is not active.
	// Default: false
	IncludeInactive bool `yaml:"include_inactive"`

	// Watch rebuilds the engine set when strategy files change.
	// Only used when Source is "file".
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a watched change triggers
	// a rebuild.
	// Default: 250ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// EngineConfig contains compilation and evaluation settings.
type EngineConfig struct {
	// CompileTimeout bounds one engine set build.
	// Default: 30s
	CompileTimeout time.Duration `yaml:"compile_timeout"`

	// CompileConcurrency limits how many stages compile at once.
	// 0 means unlimited.
	CompileConcurrency int `yaml:"compile_concurrency"`

	// EvaluationConcurrency limits how many engines evaluate one record at
	// once. 0 means unlimited.
	EvaluationConcurrency int `yaml:"evaluation_concurrency"`

	// IntegrationTimeout bounds data integration and inference calls.
	// Default: 10s
	IntegrationTimeout time.Duration `yaml:"integration_timeout"`
}

// AuditConfig contains configuration for decision audit records.
type AuditConfig struct {
	// Enabled controls whether decisions are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the audit storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains async recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query limits.
	Query QueryConfig `yaml:"query"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains audit recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing one record.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain audit records.
	// 0 keeps records forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`
}

// QueryConfig contains audit query limits.
type QueryConfig struct {
	// DefaultLimit is the number of records returned when none is given.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the largest limit a query may ask for.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactPII masks applicant identifiers (SSN, email, phone, card
	// numbers) in log output.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "mercator"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "underwriter"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for evaluation and stage
	// durations (seconds).
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "mercator-underwriter"
	ServiceName string `yaml:"service_name"`

	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
