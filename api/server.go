/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/profiles/*       User profile registration
  /api/routines/*       Routine + step authoring and schedule generation
  /api/steps/*          Step occurrence deletion (pre-regeneration)
  /api/users/*          Sweep, day view, compliance stats
  /api/occurrences/*    Completion

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
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
		r.Post("/profiles", h.CreateProfile)

		r.Route("/routines", func(r chi.Router) {
			r.Post("/", h.CreateRoutine)
			r.Post("/{id}/steps", h.CreateStep)
			r.Post("/{id}/generate", h.GenerateForRoutine)
			r.Post("/{id}/steps/{stepID}/generate", h.GenerateForStep)
		})

		r.Route("/steps", func(r chi.Router) {
			r.Delete("/{id}/occurrences", h.DeleteForStep)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/{id}/sweep", h.Sweep)
			r.Get("/{id}/occurrences", h.DayOccurrences)
			r.Get("/{id}/compliance", h.Compliance)
		})

		r.Route("/occurrences", func(r chi.Router) {
			r.Post("/{id}/complete", h.Complete)
		})
	})

	return r
}
