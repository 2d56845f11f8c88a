// Package server provides the HTTP server and routing for sentinel-desk.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/aristath/sentinel-desk/internal/di"
	libraryhandlers "github.com/aristath/sentinel-desk/internal/library/handlers"
	sessionhandlers "github.com/aristath/sentinel-desk/internal/session/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		port:      cfg.Port,
		container: cfg.Container,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Container.Orchestrator,
			cfg.Container.Scheduler,
			cfg.Container.Databases()...,
		),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event streams and policy comparisons
		// outlive any fixed write deadline.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5, "application/json", "application/yaml"))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		// Event streams are long-lived and must not sit behind the timeout
		stream := NewEventsStreamHandler(s.container.EventBus, s.log)
		r.Get("/events/stream", stream.ServeHTTP)
		r.Get("/events/ws", stream.ServeWebSocket)

		r.Group(func(r chi.Router) {
			// Comparisons run two full decisions and get their own deadline.
			timeout := 60 * time.Second
			if s.cfg != nil && s.cfg.ComparisonTimeout+10*time.Second > timeout {
				timeout = s.cfg.ComparisonTimeout + 10*time.Second
			}
			r.Use(middleware.Timeout(timeout))

			sessionhandlers.NewHandler(s.container.Orchestrator, s.container.Library, s.log).RegisterRoutes(r)
			libraryhandlers.NewHandler(s.container.Library, s.container.EventManager, s.log).RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
				r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
				r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
