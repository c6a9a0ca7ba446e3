// Package server wires the HTTP handlers into a chi router with the
// service middleware stack and manages the listener lifecycle.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/config"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/metrics"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	handler interfaces.HTTPHandler
	limiter *RateLimiter
	config  *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, handler interfaces.HTTPHandler) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:           router,
			Addr:              cfg.Address + ":" + cfg.Port,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			// Streams stay open for one generation per interaction
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		router:  router,
		handler: handler,
		limiter: NewRateLimiter(),
		config:  cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.config.Env == config.EnvProduction {
		// Must see the original RemoteAddr, so before RealIPMiddleware
		s.router.Use(BlockDirectAccessMiddleware)
	}
	s.router.Use(RealIPMiddleware)
	if s.config.TracingEnabled {
		s.router.Use(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, telemetry.ServiceName)
		})
	}
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.StripSlashes)
	s.router.Use(middleware.Recoverer)
	// Event streams are left uncompressed so every event is flushed as sent
	s.router.Use(middleware.Compress(5, "application/json"))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.limiter.Handler)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handler.Analyze)
		r.Post("/analyze/stream", s.handler.AnalyzeStream)
		r.Post("/images", s.handler.UploadImage)
		r.Get("/drugs/resolve", s.handler.ResolveDrug)
		r.Get("/interactions", s.handler.CheckInteractions)
		r.Post("/translate", s.handler.Translate)
		r.Get("/analyses", s.handler.RecentAnalyses)
	})
}

// Start listens until the server is shut down. It returns nil after a
// graceful shutdown.
func (s *Server) Start() error {
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	logging.Info("Starting server", "address", s.server.Addr, "env", s.config.Env)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	defer s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer serves pprof on loopback in development mode
func (s *Server) startProfilingServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	go func() {
		logging.Info("Profiling server started", "address", "http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", mux); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}
