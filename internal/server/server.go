package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"apdash/internal/clock"
	"apdash/internal/ledger"
	"apdash/internal/payments"
)

// LedgerLoader provides ledger snapshots to the handlers.
type LedgerLoader interface {
	Load(ctx context.Context) (*ledger.Snapshot, error)
	Refresh(ctx context.Context) (*ledger.Snapshot, error)
}

// Config holds server configuration
type Config struct {
	Port        int
	Log         zerolog.Logger
	Ledger      LedgerLoader
	Clock       clock.Clock
	Departments []string // department display priority
	DevMode     bool
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	ledger      LedgerLoader
	clock       clock.Clock
	engine      *payments.Engine
	departments []string
	port        int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}

	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		ledger:      cfg.Ledger,
		clock:       clk,
		engine:      payments.NewEngineWithLogger(cfg.Log),
		departments: cfg.Departments,
		port:        cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// Ledger fetches may be slow; the HTTP fetch carries its own timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/ledger", func(r chi.Router) {
			r.Get("/diagnostics", s.handleDiagnostics)
			r.Post("/refresh", s.handleRefresh)
		})

		r.Get("/summary", s.handleSummary)
		r.Get("/unpaid", s.handleUnpaid)
		r.Get("/unpaid/monthly", s.handleUnpaidMonthly)
		r.Get("/unpaid/statement", s.handleStatement)
		r.Get("/checks", s.handleChecks)
		r.Get("/cycles", s.handleCycles)
		r.Get("/forecast", s.handleForecast)

		r.Route("/trends", func(r chi.Router) {
			r.Get("/monthly", s.handleMonthlyTrend)
			r.Get("/weekly", s.handleWeeklyTrend)
			r.Get("/vendors", s.handleVendorTrend)
			r.Get("/distribution", s.handleDistribution)
		})

		r.Get("/vendors", s.handleVendors)
		r.Get("/vendors/query", s.handleVendorQuery)
		r.Get("/departments", s.handleDepartments)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
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
