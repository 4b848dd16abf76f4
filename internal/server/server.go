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

	"github.com/giga-sharing/gateway/internal/config"
	"github.com/giga-sharing/gateway/internal/handler"
	"github.com/giga-sharing/gateway/internal/server/middleware"
	"github.com/giga-sharing/gateway/internal/service"
	"github.com/giga-sharing/gateway/internal/sharing"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host             string
	Port             int
	ShutdownTimeout  time.Duration
	CORSOrigins      []string
	KeyRatePerMinute int
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:             "0.0.0.0",
		Port:             8080,
		ShutdownTimeout:  30 * time.Second,
		CORSOrigins:      []string{"*"},
		KeyRatePerMinute: 600,
	}
}

// Server is the top-level HTTP server for the gateway. It owns the Chi
// router, the configuration store, the upstream sharing client, and the
// authentication and key services.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *config.Store
	client     *sharing.Client
	authSvc    *service.AuthService
	keySvc     *service.KeyService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, store *config.Store, client *sharing.Client, authSvc *service.AuthService, keySvc *service.KeyService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		client:  client,
		authSvc: authSvc,
		keySvc:  keySvc,
		logger:  logger,
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
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", sharing.HeaderSharingKey, sharing.HeaderCapabilities},
		ExposedHeaders:   []string{middleware.HeaderRequestID, sharing.HeaderTableVersion},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Health check and OpenAPI document (no auth required) ---
	r.Get("/health", s.handleHealth)
	r.Get("/openapi.json", handler.NewOpenAPIHandler().ServeSpec)

	sharingHandler := handler.NewSharingHandler(s.client, s.logger)
	keyHandler := handler.NewAPIKeyHandler(s.keySvc, s.logger)
	catalogHandler := handler.NewCatalogHandler(s.store, s.logger)

	// --- Delta Sharing surface ---
	r.Route("/shares", func(r chi.Router) {
		r.Use(middleware.RateLimitByKey(s.cfg.KeyRatePerMinute))
		r.Use(middleware.Authenticate(s.authSvc))

		r.Get("/", sharingHandler.ListShares)
		r.Get("/{share}", sharingHandler.GetShare)
		r.Get("/{share}/schemas", sharingHandler.ListSchemas)
		r.Get("/{share}/all-tables", sharingHandler.ListAllTables)
		r.Get("/{share}/schemas/{schema}/tables", sharingHandler.ListTables)
		r.Get("/{share}/schemas/{schema}/tables/{table}/version", sharingHandler.TableVersion)
		r.Get("/{share}/schemas/{schema}/tables/{table}/metadata", sharingHandler.TableMetadata)
		r.Post("/{share}/schemas/{schema}/tables/{table}/query", sharingHandler.TableQuery)
		r.Get("/{share}/schemas/{schema}/tables/{table}/changes", sharingHandler.TableChanges)
	})

	// --- Admin surface ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByKey(s.cfg.KeyRatePerMinute))
		r.Use(middleware.Authenticate(s.authSvc))

		// Any authenticated key can inspect its own record.
		r.Get("/api-keys/me", keyHandler.Me)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin())

			r.Get("/api-keys", keyHandler.List)
			r.Post("/api-keys", keyHandler.Create)
			r.Get("/api-keys/{keyId}", keyHandler.Get)
			r.Patch("/api-keys/{keyId}", keyHandler.Update)
			r.Delete("/api-keys/{keyId}", keyHandler.Revoke)

			r.Get("/roles", catalogHandler.ListRoles)
			r.Post("/roles", catalogHandler.CreateRole)
			r.Get("/schemas", catalogHandler.ListSchemas)
			r.Post("/schemas", catalogHandler.CreateSchema)
		})
	})

	s.router = r
}

// handleHealth reports liveness and store reachability. Returns 503 when the
// key store cannot be reached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
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
// requests before closing the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Query responses can stream large file listings; give them room.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn("store close", "error", err)
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
