package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/kyosan/pkg/api/handlers"
	"mercator-hq/kyosan/pkg/api/middleware"
	"mercator-hq/kyosan/pkg/config"
	"mercator-hq/kyosan/pkg/conversations"
	"mercator-hq/kyosan/pkg/evidence/recorder"
	"mercator-hq/kyosan/pkg/governance"
	"mercator-hq/kyosan/pkg/orchestrator"
	"mercator-hq/kyosan/pkg/reasoning"
	"mercator-hq/kyosan/pkg/telemetry/health"
	"mercator-hq/kyosan/pkg/telemetry/metrics"
	"mercator-hq/kyosan/pkg/telemetry/tracing"
)

// Dependencies are the components the server exposes. Only Orchestrator is
// required.
type Dependencies struct {
	Orchestrator *orchestrator.Orchestrator

	// Conversations enables the /api/conversations routes.
	Conversations conversations.Store

	// Governor enables the /api/v1/ethics/upgrade routes.
	Governor *governance.Governor

	// Reasoner and Norms back the /api/v1/ethics/advanced routes. They
	// default to a reasoner at the configured harm threshold and a fresh
	// norm tracker.
	Reasoner *reasoning.Reasoner
	Norms    *reasoning.NormTracker

	// Recorder receives one decision record per evaluation.
	Recorder *recorder.Recorder

	// Metrics enables request metrics and the metrics endpoint.
	Metrics *metrics.Collector

	// Tracer enables server spans.
	Tracer *tracing.Tracer

	// Health backs /readyz and the checks in /api/health.
	Health *health.Checker

	Version health.VersionInfo
}

// Server is the Kyosan HTTP API server.
type Server struct {
	config       *config.Config
	deps         Dependencies
	httpServer   *http.Server
	addr         net.Addr
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	stopOnce     sync.Once
	mu           sync.RWMutex
	isRunning    bool
	logger       *slog.Logger
}

// NewServer creates a server. It does not listen until Start is called.
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Orchestrator == nil {
		return nil, errors.New("server: orchestrator is required")
	}
	if deps.Health == nil {
		deps.Health = health.New(cfg.Telemetry.Health.CheckTimeout)
	}
	if deps.Reasoner == nil {
		deps.Reasoner = reasoning.New(cfg.Reasoning.HarmThreshold)
	}
	if deps.Norms == nil {
		deps.Norms = reasoning.NewNormTracker()
	}
	return &Server{
		config:       cfg,
		deps:         deps,
		shutdownChan: make(chan struct{}),
		logger:       slog.Default().With("component", "server"),
	}, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, Stop is called, or serving fails. It shuts the server down
// gracefully before returning.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.config.Server.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.addr = listener.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "address", listener.Addr().String())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down and return.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.shutdownChan) })
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.config.Server.ShutdownTimeout
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("API server stopped")
	})

	return shutdownErr
}

// Handler builds the routes and the middleware chain.
func (s *Server) Handler() http.Handler {
	o := s.deps.Orchestrator
	evaluator := &handlers.Evaluator{
		Orchestrator: o,
		Recorder:     s.deps.Recorder,
		DefaultLevel: s.config.Pipeline.DefaultLevel,
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/ethics/process", handlers.NewProcessHandler(evaluator, s.deps.Conversations))
	mux.Handle("GET /api/health", handlers.NewHealthHandler(o.Registry(), o.Pipeline(), s.deps.Health))
	mux.Handle("GET /api/systems", handlers.NewSystemsHandler(o.Registry()))
	if s.deps.Conversations != nil {
		handlers.NewConversationHandler(s.deps.Conversations, evaluator).Register(mux)
	}
	handlers.NewAdvancedHandler(s.deps.Reasoner, s.deps.Norms).Register(mux)
	if s.deps.Governor != nil {
		handlers.NewGovernanceHandler(s.deps.Governor).Register(mux)
	}

	mux.Handle("/healthz", health.LivenessHandler())
	mux.Handle("/readyz", s.deps.Health.ReadinessHandler())
	v := s.deps.Version
	mux.Handle("/version", health.VersionHandler(v.Version, v.Commit, v.BuildTime))

	var recorder middleware.RequestRecorder
	if m := s.deps.Metrics; m != nil && s.config.Telemetry.Metrics.Enabled {
		mux.Handle("GET "+s.config.Telemetry.Metrics.Path, m.Handler())
		recorder = m
	}

	tracer := noop.NewTracerProvider().Tracer("")
	if s.deps.Tracer != nil {
		tracer = s.deps.Tracer.Tracer()
	}

	// Innermost first; Recovery ends up outermost.
	var handler http.Handler = middleware.Routes(mux)
	handler = middleware.MaxBody(s.config.Server.MaxBodyBytes)(handler)
	handler = middleware.Timeout(s.config.Server.RequestTimeout)(handler)
	handler = middleware.CORS(&s.config.Server.CORS)(handler)
	handler = middleware.Logging(recorder)(handler)
	handler = middleware.RequestID(handler)
	handler = tracing.Middleware(tracer)(handler)
	handler = middleware.Recovery(handler)

	return handler
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
