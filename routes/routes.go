package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/publication-rag/app"
	"github.com/upb/publication-rag/handlers"
	"github.com/upb/publication-rag/middleware"
	"github.com/upb/publication-rag/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var db *sql.DB
	if deps.DB != nil {
		db = deps.DB.DB
	}
	health := handlers.NewHealthHandler(db, deps.Config.Retrieval.VectorStore, deps.Logger)
	if deps.ProviderRegistry != nil {
		for _, name := range deps.ProviderRegistry.ListProviders() {
			if p, err := deps.ProviderRegistry.GetProvider(name); err == nil {
				health.WithProviders(p)
			}
		}
	}

	r.Get("/", health.HandleRoot)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/health", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	publications := handlers.NewPublicationHandler(deps.PublicationService, deps.Config.Retrieval.MaxTopK, deps.Logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/publications", func(r chi.Router) {
			// Ingestion requires a bearer token when auth is configured
			r.Group(func(r chi.Router) {
				if deps.AuthMiddleware != nil {
					r.Use(deps.AuthMiddleware.RequireAuth)
				}
				r.Post("/", publications.HandleCreate)
				r.Post("/batch", publications.HandleBatch)
			})

			if rps := deps.Config.Server.QueryRateLimit; rps > 0 {
				limiter := middleware.NewClientRateLimiter(rps, deps.Config.Server.QueryRateBurst, deps.Logger)
				r.With(limiter.Limit).Post("/query", publications.HandleQuery)
			} else {
				r.Post("/query", publications.HandleQuery)
			}
			r.Get("/{id}", publications.HandleGet)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
