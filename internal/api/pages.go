package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/churn-dashboard/internal/api/handlers"
	"github.com/ramonehamilton/churn-dashboard/internal/api/response"
	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// page renders the dashboard. ?section= switches the active section first.
// The first page view loads the overview.
func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	if section := r.URL.Query().Get("section"); section != "" {
		if err := s.dashboard.Router().Show(r.Context(), section); err != nil {
			http.Error(w, err.Error(), handlers.StatusFor(err))
			return
		}
	}
	s.loadOverviewOnce(r.Context())
	s.renderPage(w)
}

// loadOverviewOnce loads the overview for the first page view. It runs only
// while the overview has never been loaded or restored; a failure is shown
// on the page as the overview's error message.
func (s *Server) loadOverviewOnce(ctx context.Context) {
	v, err := s.dashboard.View(views.SectionOverview)
	if err != nil || v.Status().State != views.StateIdle {
		return
	}
	err = v.Load(ctx, views.LoadOptions{Trigger: views.TriggerPage})
	if err != nil && !errors.Is(err, views.ErrSuperseded) {
		log.Printf("[Server] Initial overview load failed: %v", err)
	}
}

// showSection handles the navigation buttons.
func (s *Server) showSection(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.Router().Show(r.Context(), chi.URLParam(r, "sectionID")); err != nil {
		http.Error(w, err.Error(), handlers.StatusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// loadView handles a panel's load button. The load runs to completion before
// redirecting so the next page shows its outcome; a failed load is shown on
// the page as the view's error message.
func (s *Server) loadView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	v, err := s.dashboard.View(name)
	if err != nil {
		http.Error(w, err.Error(), handlers.StatusFor(err))
		return
	}
	if err := s.dashboard.Router().Show(r.Context(), name); err != nil {
		http.Error(w, err.Error(), handlers.StatusFor(err))
		return
	}

	err = v.Load(r.Context(), views.LoadOptions{Force: true, Trigger: views.TriggerButton})
	if err != nil && !errors.Is(err, views.ErrSuperseded) {
		log.Printf("[Server] Load of %s failed: %v", name, err)
	}
	http.Redirect(w, r, "/?section="+url.QueryEscape(name), http.StatusSeeOther)
}

func (s *Server) renderPage(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	response.HTML(w, http.StatusOK, s.dashboard.RenderPage)
}
