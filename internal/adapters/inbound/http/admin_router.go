package http

import (
	"net/http"

	"github.com/architeacher/checkpoint/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/checkpoint/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/checkpoint/internal/usecases"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// AdminRouterConfig holds dependencies for the admin router.
type AdminRouterConfig struct {
	App           *usecases.Application
	MetricsClient metrics.Client
	Logger        logger.Logger
}

// NewAdminRouter serves health checks and metrics. It is meant for an internal port only.
func NewAdminRouter(cfg AdminRouterConfig) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Recovery(cfg.Logger))

	healthHandler := handlers.NewHealthHandler(cfg.App)

	router.Get("/health", healthHandler.Health)
	router.Get("/liveness", healthHandler.Liveness)
	router.Get("/readiness", healthHandler.Readiness)

	if cfg.MetricsClient != nil {
		router.Handle("/metrics", cfg.MetricsClient.Handler())
	}

	return router
}
