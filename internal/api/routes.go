package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sentiment-analyst/config"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.Analysis.TimeoutSeconds) * time.Second))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)
	r.Use(LoggingMiddleware)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		r.Post("/analyze", h.HandleAnalyze)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", h.HandleGetReports)
			r.Get("/{id}", h.HandleGetReport)
		})

		r.Get("/tickers", h.HandleGetTickers)
		r.Get("/ratelimits", h.HandleGetRateLimits)
	})

	return r
}
