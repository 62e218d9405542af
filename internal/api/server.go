package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/seatwatch/internal/api/auth"
	"github.com/albapepper/seatwatch/internal/api/handler"
	"github.com/albapepper/seatwatch/internal/config"
	"github.com/albapepper/seatwatch/internal/metrics"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps handler.Deps, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)
	if cfg.MetricsEnabled {
		r.Use(MetricsMiddleware)
	}
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type", "If-None-Match", auth.DevUserHeader},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "X-Request-Id", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	h := handler.New(deps)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Get("/stations", h.ListStations)
		r.Get("/stations/{id}", h.GetStation)
		r.Get("/scheduler", h.GetSchedulerStatus)

		// Per-user
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.JWTSecret))

			r.Post("/watches", h.CreateWatch)
			r.Get("/watches", h.ListWatches)
			r.Post("/watches/decline", h.BulkDecline)
			r.Post("/watches/delete", h.BulkDelete)
			r.Post("/watches/{id}/decline", h.DeclineWatch)
			r.Delete("/watches/{id}", h.DeleteWatch)
		})
	})

	return r
}
