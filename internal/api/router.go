package api

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AustinWheel/diving-duck-sub000/internal/api/auth"
	"github.com/AustinWheel/diving-duck-sub000/internal/api/dashboard"
	"github.com/AustinWheel/diving-duck-sub000/internal/api/ingest"
	"github.com/AustinWheel/diving-duck-sub000/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Dashboard tokens are issued by the dashboard's identity layer;
	// this service only verifies them.
	jwtService := auth.NewJWTService(s.config.JWTSecret, 24*time.Hour)

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)
	tenantLimiter := middleware.NewRateLimiter(s.config.RateLimitPerTenant)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		// Event ingestion, authenticated by API key.
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(s.storage))
			r.Use(middleware.RateLimitByTenant(tenantLimiter))

			ingestHandler := ingest.NewHandler(s.ingestion)
			r.Post("/events", ingestHandler.Ingest)
			r.Post("/events/test", ingestHandler.IngestTest)
		})

		// Dashboard reads, authenticated by JWT.
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(middleware.DashboardAuth(jwtService, s.storage))
			r.Use(middleware.RateLimitByTenant(tenantLimiter))

			dashHandler := dashboard.NewHandler(s.storage, s.aggregator)
			r.Get("/metrics", dashHandler.Metrics)
			r.Get("/alerts", dashHandler.Alerts)
			r.Post("/alerts/{id}/ack", dashHandler.Acknowledge)
		})
	})

	// Health endpoints (public, IP rate limited)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ipLimiter))
		r.Get("/health", s.healthHandler.Health)
		r.Get("/health/live", s.healthHandler.Live)
		r.Get("/health/ready", s.healthHandler.Ready)
	})

	return r
}
