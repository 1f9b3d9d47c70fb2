package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/underwriter/pkg/audit"
	"mercator-hq/underwriter/pkg/config"
	"mercator-hq/underwriter/pkg/orchestrator"
	"mercator-hq/underwriter/pkg/server/middleware"
	"mercator-hq/underwriter/pkg/telemetry/health"
	"mercator-hq/underwriter/pkg/telemetry/tracing"
)

// Engine evaluates applications against the loaded strategies.
// *orchestrator.Orchestrator satisfies it.
type Engine interface {
	Evaluate(ctx context.Context, rec map[string]any) (*orchestrator.CompositeDecision, error)
	Reload(ctx context.Context) (*orchestrator.EngineSet, error)
	Engines(ctx context.Context) ([]*orchestrator.CompiledEngine, error)
}

// Server is the HTTP API server.
type Server struct {
	config *config.ServerConfig
	engine Engine
	logger *slog.Logger

	keys         *middleware.KeySet
	auditStorage audit.Storage
	auditLimits  audit.Limits
	checker      *health.Checker
	metrics      http.Handler
	metricsPath  string
	observer     middleware.HTTPObserver
	tracer       *tracing.Tracer
	version      versionInfo

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

type versionInfo struct {
	version, commit, buildTime string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.With("component", "server")
		}
	}
}

// WithAuth requires one of keys on every /v1 route.
func WithAuth(keys *middleware.KeySet) Option {
	return func(s *Server) { s.keys = keys }
}

// WithAudit serves GET /v1/audit from storage.
func WithAudit(storage audit.Storage, limits audit.Limits) Option {
	return func(s *Server) {
		s.auditStorage = storage
		s.auditLimits = limits
	}
}

// WithHealth serves the liveness and readiness endpoints from checker.
func WithHealth(checker *health.Checker) Option {
	return func(s *Server) { s.checker = checker }
}

// WithMetrics serves h at path and reports request metrics to obs.
func WithMetrics(path string, h http.Handler, obs middleware.HTTPObserver) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metrics = h
		s.observer = obs
	}
}

// WithTracer wraps every API route in a server span.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// WithVersion sets the build information reported by /version.
func WithVersion(version, commit, buildTime string) Option {
	return func(s *Server) { s.version = versionInfo{version, commit, buildTime} }
}

// New creates a server for engine.
func New(cfg *config.ServerConfig, engine Engine, opts ...Option) *Server {
	s := &Server{
		config:  cfg,
		engine:  engine,
		logger:  slog.Default().With("component", "server"),
		version: versionInfo{"dev", "unknown", "unknown"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting decision API", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.setRunning(false)
		return err
	}
}

// Shutdown stops the server, waiting up to the configured shutdown timeout
// for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		srv := s.httpServer
		s.mu.RUnlock()
		if srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
		s.setRunning(false)
		s.logger.Info("decision API stopped")
	})

	return shutdownErr
}

func (s *Server) setRunning(v bool) {
	s.mu.Lock()
	s.isRunning = v
	s.mu.Unlock()
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, http.MethodPost, "/v1/decisions", s.handleDecision)
	s.route(mux, http.MethodPost, "/v1/strategies/reload", s.handleReload)
	s.route(mux, http.MethodGet, "/v1/strategies", s.handleStrategies)
	if s.auditStorage != nil {
		s.route(mux, http.MethodGet, "/v1/audit", s.handleAuditQuery)
		s.route(mux, http.MethodGet, "/v1/audit/{id}", s.handleAuditGet)
	}

	if s.checker != nil {
		mux.Handle("/health", s.checker.LivenessHandler())
		mux.Handle("/ready", s.checker.ReadinessHandler())
	}
	mux.Handle("/version", health.VersionHandler(s.version.version, s.version.commit, s.version.buildTime))
	if s.metrics != nil {
		mux.Handle(s.metricsPath, s.metrics)
	}

	var handler http.Handler = mux
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.logger)(handler)
	return handler
}

func (s *Server) route(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.keys != nil {
		handler = middleware.Authenticate(s.keys, s.logger)(handler)
	}
	handler = middleware.Instrument(path, s.observer)(handler)
	if s.tracer != nil {
		handler = s.tracer.HTTPMiddleware(path, handler)
	}
	mux.Handle(method+" "+path, handler)
}
