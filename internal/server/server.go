package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/carrierd/carrierd/internal/apierr"
	"github.com/carrierd/carrierd/internal/cache"
	"github.com/carrierd/carrierd/internal/carrier"
	"github.com/carrierd/carrierd/internal/handler"
	"github.com/carrierd/carrierd/internal/server/middleware"
	"github.com/carrierd/carrierd/internal/service"
	"github.com/carrierd/carrierd/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	BaseURL         string // advertised in the OpenAPI document; empty uses the request host
	Version         string
	RateLimit       int // requests per minute per API key, 0 disables
	PublicRateLimit int // requests per minute per IP on public views, 0 disables
	SessionTTL      time.Duration
	EnablePublic    bool
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		Version:         "dev",
		RateLimit:       120,
		PublicRateLimit: 300,
		SessionTTL:      24 * time.Hour,
		EnablePublic:    true,
	}
}

// Server is the top-level HTTP server for carrierd. It owns the Chi router,
// the store, the carrier operations and the authentication service.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	carriers   *carrier.Service
	cache      cache.Cache
	resp       *handler.Responder
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, authSvc *service.AuthService, carriers *carrier.Service,
	viewCache cache.Cache, catalog *apierr.Catalog, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		authSvc:  authSvc,
		carriers: carriers,
		cache:    viewCache,
		resp:     handler.NewResponder(catalog, logger),
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
		ExposedHeaders:   []string{middleware.RequestIDHeader, handler.ModifiedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI document (no auth required) ---
	r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.BaseURL, s.cfg.Version).ServeSpec)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {

		// System APIs (admin management)
		r.Route("/system", func(r chi.Router) {
			sysHandler := handler.NewSystemHandler(s.store, s.authSvc, s.resp, s.cfg.SessionTTL)

			// Session endpoints are unauthenticated (login) or self-authenticated (logout)
			r.Post("/admin/session", sysHandler.Login)
			r.Delete("/admin/session", sysHandler.Logout)

			// All other system endpoints require admin authentication
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthenticateAdmin(s.authSvc, s.resp.Error))
				r.Use(middleware.RequireAdmin(s.resp.Error))

				r.Get("/admin", sysHandler.ListAdmins)
				r.Post("/admin", sysHandler.CreateAdmin)

				r.Get("/api_key", sysHandler.ListAPIKeys)
				r.Post("/api_key", sysHandler.CreateAPIKey)
				r.Get("/api_key/{keyId}", sysHandler.GetAPIKey)
				r.Put("/api_key/{keyId}/access", sysHandler.SetAPIKeyAccess)
				r.Delete("/api_key/{keyId}", sysHandler.RevokeAPIKey)

				r.Get("/service", sysHandler.ListServices)
				r.Post("/service", sysHandler.CreateService)
				r.Post("/service/seed", sysHandler.SeedServices)
				r.Delete("/service/{serviceName}", sysHandler.DeleteService)

				r.Get("/audit", sysHandler.ListAudit)
			})
		})

		// Carrier API, one route per endpoint descriptor
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthenticateKey(s.authSvc, s.resp.Error))
			if s.cfg.RateLimit > 0 {
				r.Use(middleware.RateLimitByKey(s.cfg.RateLimit))
			}

			carrierHandler := handler.NewCarrierHandler(s.carriers, s.resp)
			for _, ep := range carrier.Endpoints() {
				r.Method(ep.Method, ep.Path, carrierHandler.Handler(ep.ID))
			}
		})
	})

	// --- Public carrier views ---
	if s.cfg.EnablePublic {
		publicHandler := handler.NewPublicHandler(s.store, s.cache, s.resp, s.logger)
		s.carriers.OnChange(publicHandler.Invalidate)

		r.Group(func(r chi.Router) {
			if s.cfg.PublicRateLimit > 0 {
				r.Use(middleware.RateLimit(s.cfg.PublicRateLimit))
			}
			r.Get("/public/carriers", publicHandler.ListCarriers)
			r.Get("/public/carrier/{id}", publicHandler.GetCarrier)
			r.Get("/embed/carrier/{id}", publicHandler.Embed)
		})
	}

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store is reachable
// and 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{"store": "ok"}

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the cache and the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.cache.Close(); err != nil {
		s.logger.Warn("cache close failed", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("store close failed", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
