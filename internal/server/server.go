// Package server wires the HTTP surface: it builds the OCR engine from
// configuration, registers all endpoints, and manages graceful startup
// and shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pagetext/pagetext/internal/api"
	"github.com/pagetext/pagetext/internal/batch"
	"github.com/pagetext/pagetext/internal/config"
	"github.com/pagetext/pagetext/internal/engine"
	"github.com/pagetext/pagetext/internal/home"
	"github.com/pagetext/pagetext/internal/server/endpoints"
	"github.com/pagetext/pagetext/internal/svcctx"
)

// Server is the main pagetext HTTP server.
type Server struct {
	httpServer *http.Server
	engines    *engine.Registry
	processor  *batch.Processor
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is the pagetext home directory
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
	// Engine optionally overrides config-driven engine construction.
	Engine engine.Engine
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	engines := engine.NewRegistry()
	engines.SetLogger(cfg.Logger)

	if cfg.Engine != nil {
		engines.Register(cfg.Engine)
	} else {
		engines.Register(BuildEngine(cfg.ConfigManager.Get(), cfg.Logger))

		// Rebuild the engine when the config file changes; the registry
		// swap is atomic from the request side.
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			e := BuildEngine(c, cfg.Logger)
			engines.Register(e)
			_ = engines.SetDefault(e.Name())
			cfg.Logger.Info("OCR engine reloaded from config", "engine", e.Name())
		})
	}

	s := &Server{
		engines:   engines,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	// The processor resolves the current default engine per call, so it
	// survives config reloads.
	s.processor = batch.NewProcessor(registryEngine{reg: engines}, cfg.Logger)

	s.services = &svcctx.Services{
		Engines:   engines,
		Processor: s.processor,
		ConfigMgr: cfg.ConfigManager,
		Logger:    cfg.Logger,
		Home:      cfg.Home,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireEngine)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(s.logRequests(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // large PDF batches run inside the request
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// BuildEngine constructs the OCR engine named by the configuration.
func BuildEngine(c *config.Config, logger *slog.Logger) engine.Engine {
	switch c.Engine.Type {
	case engine.MockName:
		return engine.NewMock()
	default:
		return engine.NewTesseract(engine.Config{
			Languages:      c.Engine.Languages,
			TessdataPrefix: c.ResolvedTessdataPrefix(),
			Timeout:        c.Engine.Timeout,
			MaxRetries:     c.Engine.MaxRetries,
			RetryDelay:     c.Engine.RetryDelay,
		}, logger)
	}
}

// Start starts the server. It blocks until the context is cancelled or
// an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Engines returns the OCR engine registry.
func (s *Server) Engines() *engine.Registry {
	return s.engines
}

// Handler returns the fully wired HTTP handler, including the service
// context middleware. Used by tests with httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// logRequests wraps a handler with slog request logging.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireEngine is middleware that ensures an OCR engine is registered.
// Returns 503 Service Unavailable otherwise.
func (s *Server) requireEngine(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.engines.Default(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"no OCR engine registered"}`))
			return
		}
		next(w, r)
	}
}

// registryEngine delegates recognition to the registry's current
// default engine.
type registryEngine struct {
	reg *engine.Registry
}

func (r registryEngine) Name() string {
	e, err := r.reg.Default()
	if err != nil {
		return "none"
	}
	return e.Name()
}

func (r registryEngine) Recognize(ctx context.Context, png []byte, opts engine.Options) (string, error) {
	e, err := r.reg.Default()
	if err != nil {
		return "", &engine.RecognitionError{Engine: "none", Err: err}
	}
	return e.Recognize(ctx, png, opts)
}
