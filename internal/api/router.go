package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system/status", s.handleSystemStatus)

		// Sequence endpoints
		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", s.handleListSequences)
			r.Post("/", s.handleCreateSequence)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSequence)
				r.Put("/", s.handleUpdateSequence)
				r.Delete("/", s.handleDeleteSequence)
			})
		})

		// Controller endpoints
		r.Route("/controllers", func(r chi.Router) {
			r.Get("/", s.handleListControllers)
			r.Post("/", s.handleCreateController)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetController)
				r.Put("/", s.handleUpdateController)
				r.Delete("/", s.handleDeleteController)
			})
		})

		// Device endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
			})
		})

		// Run control endpoints
		r.Route("/run", func(r chi.Router) {
			r.Post("/start", s.handleRunStart)
			r.Post("/pause", s.handleRunPause)
			r.Post("/resume", s.handleRunResume)
			r.Post("/stop", s.handleRunStop)
			r.Put("/speed", s.handleRunSpeed)
			r.Get("/state", s.handleRunState)
		})

		// WebSocket endpoint for live playback events
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
