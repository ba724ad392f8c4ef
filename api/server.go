/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/process            Run a distribution
  /api/history/*          Stored runs, export, compare, trends, search
  /api/preferences/*      Column alert preferences
  /api/demo               Synthetic datasets
  /api/health             Liveness probe

SECURITY NOTE:
  No authentication middleware. The service runs inside the authority's
  network; put it behind the office reverse proxy before exposing it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/remupro: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/process", h.ProcessRun)
		r.Get("/demo", h.DemoDatasets)
		r.Get("/health", h.Health)

		r.Route("/history", func(r chi.Router) {
			r.Get("/months", h.ListMonths)
			r.Get("/compare", h.CompareMonths)
			r.Get("/trends", h.Trends)
			r.Get("/search", h.SearchTeachers)
			r.Get("/{month}", h.GetRun)
			r.Delete("/{month}", h.DeleteRun)
			r.Get("/{month}/export", h.ExportRun)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/columns", h.ListPreferences)
			r.Put("/columns/{key}", h.SetPreference)
			r.Delete("/columns/{key}", h.DeletePreference)
		})
	})

	return r
}
