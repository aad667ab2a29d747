// Package api provides the HTTP API server for the deployment platform.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/launchdeck/launchdeck/internal/api/handlers"
	"github.com/launchdeck/launchdeck/internal/api/middleware"
	"github.com/launchdeck/launchdeck/internal/auth"
	"github.com/launchdeck/launchdeck/internal/orchestrator"
	"github.com/launchdeck/launchdeck/internal/provider"
	"github.com/launchdeck/launchdeck/internal/store"
	"github.com/launchdeck/launchdeck/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	httpServer   *http.Server
	store        store.Store
	providers    *provider.Registry
	orchestrator *orchestrator.Service
	auth         *auth.Service
	config       *config.Config
	logger       *slog.Logger
}

// NewServer creates the API server with its routes configured.
func NewServer(
	cfg *config.Config,
	st store.Store,
	providers *provider.Registry,
	orch *orchestrator.Service,
	authSvc *auth.Service,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:        st,
		providers:    providers,
		orchestrator: orch,
		auth:         authSvc,
		config:       cfg,
		logger:       logger,
	}
	s.setupRouter()
	return s
}

// setupRouter configures middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	authHandler := handlers.NewAuthHandler(s.store, s.auth, s.logger)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)
		r.Use(authMiddleware.Authenticate)

		projectHandler := handlers.NewProjectHandler(s.store, s.providers, s.orchestrator, s.logger)
		deploymentHandler := handlers.NewDeploymentHandler(s.orchestrator, s.logger)
		logStreamHandler := handlers.NewLogStreamHandler(s.orchestrator, s.logger)

		r.Get("/quota", deploymentHandler.Quota)
		r.Get("/providers", s.handleProviders)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", projectHandler.Create)
			r.Get("/", projectHandler.List)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Use(middleware.RequireProjectOwnership(s.store, s.logger))

				r.Get("/", projectHandler.Get)
				r.Get("/settings", projectHandler.GetSettings)
				r.Put("/settings", projectHandler.UpdateSettings)
				r.Get("/env/{environment}", projectHandler.GetEnvVars)
				r.Put("/env/{environment}", projectHandler.SetEnvVars)

				r.Post("/previews", deploymentHandler.Preview)
				r.Post("/deployments", deploymentHandler.Create)
				r.Get("/deployments", deploymentHandler.History)
				r.Get("/metrics", deploymentHandler.Metrics)
			})
		})

		r.Route("/deployments/{deploymentID}", func(r chi.Router) {
			r.Use(middleware.RequireDeploymentOwnership(s.store, s.logger))

			r.Get("/", deploymentHandler.Get)
			r.Get("/logs", deploymentHandler.Logs)
			r.Get("/logs/stream", logStreamHandler.StreamSSE)
			r.Get("/logs/ws", logStreamHandler.StreamWS)
			r.Post("/cancel", deploymentHandler.Cancel)
			r.Post("/rollback", deploymentHandler.Rollback)
		})
	})

	s.router = r
}

// handleHealth reports liveness and the configured providers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","version":%q}`, Version)
}

// handleProviders lists the registered hosting providers.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	names := s.providers.Names()
	w.WriteHeader(http.StatusOK)
	payload := `{"providers":[`
	for i, name := range names {
		if i > 0 {
			payload += ","
		}
		payload += fmt.Sprintf("%q", name)
	}
	payload += `]}`
	w.Write([]byte(payload))
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("API server starting", "addr", addr, "version", Version)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}
