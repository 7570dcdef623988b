package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Get("/health", h.Health)

		// Protected routes (auth required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))
			r.Post("/activities", h.IngestActivities)
			r.Post("/facts", h.IngestFacts)
			r.Post("/runs", h.BuildRun)
			r.Post("/runs/preview", h.PreviewRun)
			r.Get("/checkpoints/{childID}", h.GetCheckpoint)
			r.Put("/checkpoints/{childID}", h.SaveCheckpoint)
			r.Delete("/checkpoints/{childID}", h.DeleteCheckpoint)
		})
	})

	return r
}
