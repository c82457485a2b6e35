package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes. A nil registry skips the /metrics
// endpoint (tests).
func SetupRoutes(h *Handlers, registry *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/lists", func(r chi.Router) {
			r.Post("/", h.CreateList)
			r.Get("/{id}", h.GetList)
			r.Patch("/{id}", h.UpdateList)
			r.Delete("/{id}", h.DeleteList)
		})
		r.Get("/advertisers/{advertiserID}/lists", h.GetAdvertiserLists)

		r.Post("/identifiers/validate", h.ValidateIdentifiers)
		r.Post("/identifiers/lookup", h.LookupIdentifier)

		r.Post("/decision", h.Decide)
		r.Get("/stats", h.Stats)

		if h.imports != nil {
			r.Post("/imports", h.EnqueueImport)
			r.Get("/imports/{id}", h.ImportProgress)
		}
	})

	return r
}
