// Package http assembles the chi route tree and the HTTP server.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/handlers"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/middleware"
)

// RouterConfig collects handlers and middleware. Nil handlers leave their
// routes unmounted.
type RouterConfig struct {
	AlertsHandler *handlers.AlertsHandler
	AgendaHandler *handlers.AgendaHandler
	HealthHandler *handlers.HealthHandler

	AuthMiddleware *middleware.AuthMiddleware
	Tenant         middleware.TenantConfig
	Logging        middleware.LoggingConfig

	// Metrics records request counters when set.
	Metrics        middleware.HTTPRecorder
	MetricsHandler http.Handler
	MetricsPath    string

	Logger logging.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogging(logger, cfg.Logging))
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(middleware.RequestMetrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.Handler)
		}
		api.Use(middleware.NewTenantMiddleware(cfg.Tenant, logger))

		if h := cfg.AlertsHandler; h != nil {
			api.Get("/alerts", h.List)
			api.Get("/alerts/summary", h.Summary)
		}
		if h := cfg.AgendaHandler; h != nil {
			api.Get("/agenda", h.List)
		}
	})

	return r
}
