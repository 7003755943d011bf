package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/churn-dashboard/internal/api/handlers"
	"github.com/ramonehamilton/churn-dashboard/internal/api/response"
)

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint (no JSON content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	// Dashboard page and its form actions
	s.router.Get("/", s.page)
	s.router.Post("/sections/{sectionID}", s.showSection)
	s.router.Post("/views/{view}/load", s.loadView)

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.jsonContentTypeMiddleware)

		sectionHandler := handlers.NewSectionHandler(s.dashboard.Router())
		r.Route("/sections", func(r chi.Router) {
			r.Get("/", sectionHandler.GetSections)
			r.Post("/{sectionID}", sectionHandler.ShowSection)
		})

		viewHandler := handlers.NewViewHandler(s.dashboard)
		r.Route("/views", func(r chi.Router) {
			r.Get("/", viewHandler.GetViews)
			r.Get("/{view}", viewHandler.GetView)
			r.Post("/{view}/load", viewHandler.LoadView)
			r.Get("/{view}/fragment", viewHandler.GetFragment)
			r.Get("/{view}/charts/{chart}", viewHandler.GetChart)
		})

		snapshotHandler := handlers.NewSnapshotHandler(s.snapshots, s.dashboard)
		r.Get("/snapshots/{view}", snapshotHandler.ListSnapshots)

		metricsHandler := handlers.NewMetricsHandler(s.metrics, s.client, s.dashboard)
		r.Get("/metrics", metricsHandler.GetMetrics)
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "churn-dashboard",
	})
}
