package routes

import (
	"context"
	"net/http"
	"time"

	"partstream/fitment-engine/internal/api"
	"partstream/fitment-engine/internal/db"
	"partstream/fitment-engine/internal/logging"
	"partstream/fitment-engine/internal/metrics"
	"partstream/fitment-engine/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RegisterRoutes builds the Chi router with global middleware, health check,
// and all versioned API routes. baseCtx bounds background import jobs.
func RegisterRoutes(baseCtx context.Context, upSince time.Time) (http.Handler, *api.Dependencies) {

	r := chi.NewRouter()

	metricsReg := metrics.NewMetricsRegistry()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))
	r.Use(middleware.RateLimitMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:8081"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-Id"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	logging.Info("Router initialized with metrics and logging middleware")

	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(db.DB, upSince))

	deps, err := api.InitDependencies(baseCtx, metricsReg)
	if err != nil {
		panic("Failed to initialize dependencies: " + err.Error())
	}

	RegisterAPIRoutes(r, deps)

	return r, deps
}
