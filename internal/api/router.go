package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the handlers the router mounts.
type RouterConfig struct {
	Sites  *SiteHandler
	Health *HealthHandler
}

// NewRouter assembles the chi router for the API binary. Prometheus metrics
// are exposed from the default registry at /metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", cfg.Health.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/sites", func(r chi.Router) {
		cfg.Sites.RegisterRoutes(r)
	})

	return r
}
