package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/draftleague/scorekeeper/internal/api/handlers"
	"github.com/draftleague/scorekeeper/internal/api/response"
	"github.com/draftleague/scorekeeper/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	s.router.Route("/api", func(r chi.Router) {
		replayHandler := handlers.NewReplayHandler(s.analyzer)
		r.Post("/analyze", replayHandler.Analyze)

		sheetsHandler := handlers.NewSheetsHandler(s.board, s.analyzer)
		r.Route("/sheets", func(r chi.Router) {
			r.Post("/update", sheetsHandler.Update)
			r.Post("/delete", sheetsHandler.Delete)
			r.Get("/list", sheetsHandler.List)
		})

		defaultsHandler := handlers.NewDefaultsHandler(s.bindings)
		r.Route("/defaults", func(r chi.Router) {
			r.Put("/{tenant}", defaultsHandler.Set)
			r.Get("/{tenant}", defaultsHandler.Get)
		})

		setsHandler := handlers.NewSetsHandler(s.sets, s.defaultGeneration)
		r.Get("/sets/{pokemon}", setsHandler.Get)
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "scorekeeper-api",
		"version": version.GetVersion(),
	})
}
