// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the wiring layer: it builds every dependency from the
// config and decides which URL maps to which handler.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go loads config.Config → server.New(cfg, logger)
//	server.New creates:
//	  sqlite.DB ─┬─ SessionService (+ auth.GoogleProvider, auth.Sealer)
//	             └─ Provisioner
//	  SessionService + Provisioner + sheets.GoogleFactory → RSVPService
//	  services → AuthHandler, RSVPHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/sakif/wedding-rsvp/internal/auth"
	"github.com/sakif/wedding-rsvp/internal/config"
	"github.com/sakif/wedding-rsvp/internal/handler"
	"github.com/sakif/wedding-rsvp/internal/metrics"
	"github.com/sakif/wedding-rsvp/internal/middleware"
	sqliteRepo "github.com/sakif/wedding-rsvp/internal/repository/sqlite"
	"github.com/sakif/wedding-rsvp/internal/service"
	"github.com/sakif/wedding-rsvp/internal/sheets"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and the rate limiter's cleanup
// goroutine; both are released by Close (Start calls it on shutdown).
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	limiter  *middleware.RateLimiter
	registry *prometheus.Registry

	sheetsFactory sheets.Factory
	googleAuthURL string
	googleToken   string
}

// Option customizes a Server. Production code passes none.
type Option func(*Server)

// WithSheetsFactory replaces the Google Sheets client factory.
func WithSheetsFactory(f sheets.Factory) Option {
	return func(s *Server) { s.sheetsFactory = f }
}

// WithGoogleEndpoints points the OAuth flow at other authorization and
// token URLs.
func WithGoogleEndpoints(authURL, tokenURL string) Option {
	return func(s *Server) {
		s.googleAuthURL = authURL
		s.googleToken = tokenURL
	}
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
//  1. Create the database connection (sqlite.New)
//  2. Create the services with the DB as their repository.ConfigRepository
//  3. Create the handlers with the services
//  4. Wire handlers to routes
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:        chi.NewRouter(),
		config:        cfg,
		logger:        logger,
		db:            db,
		registry:      prometheus.NewRegistry(),
		sheetsFactory: sheets.GoogleFactory,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /api/auth/url           → consent URL (JSON), sets oauth_state cookie
// GET    /api/auth/status        → {"connected": bool}
// POST   /api/rsvp               → submit an RSVP (rate limited per IP)
// GET    /auth/google/callback   → OAuth redirect target (HTML)
// GET    /healthz                → liveness
// GET    /metrics                → Prometheus scrape
// GET    /*                      → built SPA, index.html fallback
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers (the limiter keys on it)
// 3. Logger: logs each request with timing info
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. SecurityHeaders: nosniff, frame and referrer policy
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders)

	// === Metrics ===
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(s.registry)

	// === OAuth ===
	provider := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     s.config.GoogleClientID,
		ClientSecret: s.config.GoogleClientSecret,
		RedirectURL:  s.config.GoogleRedirectURI,
		AuthURL:      s.googleAuthURL,
		TokenURL:     s.googleToken,
	})

	stateSecret := s.config.OAuthStateSecret
	if stateSecret == "" {
		stateSecret = rand.Text()
		s.logger.Warn("OAUTH_STATE_SECRET not set; using a per-process secret")
	}
	states, err := auth.NewStateSigner(stateSecret)
	if err != nil {
		return fmt.Errorf("creating state signer: %w", err)
	}

	sessionOpts := []service.SessionOption{service.WithExchangeTimeout(s.config.RemoteTimeout)}
	if s.config.TokenEncryptionKey != "" {
		sealer, err := auth.NewSealer(s.config.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("creating credential sealer: %w", err)
		}
		sessionOpts = append(sessionOpts, service.WithRecordCodec(sealer))
	}

	// === Services ===
	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) → implements repository.ConfigRepository
	//   SessionService and Provisioner receive the repository interface
	//   RSVPService receives both plus the Sheets client factory
	sessionService := service.NewSessionService(provider, s.db, recorder, s.logger, sessionOpts...)
	provisioner := service.NewProvisioner(s.db, s.config.GoogleSheetID, s.config.SheetTitle, recorder, s.logger)
	rsvpService := service.NewRSVPService(sessionService, provisioner, s.sheetsFactory, recorder, s.logger,
		service.WithLocation(s.config.Location()),
		service.WithRemoteTimeout(s.config.RemoteTimeout),
	)

	// === Handlers ===
	authHandler, err := handler.NewAuthHandler(sessionService, states, s.config.SecureCookies(), s.logger)
	if err != nil {
		return fmt.Errorf("creating auth handler: %w", err)
	}
	rsvpHandler := handler.NewRSVPHandler(rsvpService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:            rate.Limit(s.config.RSVPRatePerMinute / 60),
		Burst:           s.config.RSVPRateBurst,
		CleanupInterval: 5 * time.Minute,
	}, s.logger)

	// === Routes ===
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/auth/url", authHandler.HandleAuthURL)
		r.Get("/auth/status", authHandler.HandleStatus)
		r.With(s.limiter.Middleware).Post("/rsvp", rsvpHandler.HandleSubmit)
	})
	s.router.Get("/auth/google/callback", authHandler.HandleCallback)

	// === Frontend ===
	s.router.Get("/*", handler.NewSPAHandler(s.config.StaticDir, s.logger).ServeHTTP)

	return nil
}

// Handler returns the root handler; tests drive it through httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and stops background goroutines.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A submission may spend REMOTE_TIMEOUT on Google before answering.
		WriteTimeout: s.config.RemoteTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.AppURL),
			slog.String("database", s.config.DBPath),
			slog.String("static", s.config.StaticDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
