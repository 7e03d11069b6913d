// Package rest wires the HTTP surface: middleware chain, health and
// metrics endpoints, and the authenticated API routes.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"mindmesh/infrastructure/config"
	"mindmesh/interfaces/http/rest/handlers"
	"mindmesh/interfaces/http/rest/middleware"
	"mindmesh/pkg/auth"
	"mindmesh/pkg/observability"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Router builds the HTTP handler tree.
type Router struct {
	cfg       *config.Config
	notes     *handlers.NoteHandler
	maps      *handlers.MapHandler
	validator *auth.JWTValidator
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewRouter creates a router.
func NewRouter(
	cfg *config.Config,
	notes *handlers.NoteHandler,
	maps *handlers.MapHandler,
	validator *auth.JWTValidator,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:       cfg,
		notes:     notes,
		maps:      maps,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger(rt.logger))
	if rt.cfg.Features.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.cfg.Features.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	health := handlers.NewHealthHandler(Version)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	if rt.cfg.Features.EnableMetrics {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.cfg.Features.RateLimitRPM, rt.logger))
		rt.notes.RegisterRoutes(r)
		rt.maps.RegisterRoutes(r)
	})

	return router
}
