package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/churn-dashboard/internal/api/response"
	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// SectionHandler handles section navigation requests.
type SectionHandler struct {
	router *views.Router
}

// NewSectionHandler creates a new SectionHandler.
func NewSectionHandler(router *views.Router) *SectionHandler {
	return &SectionHandler{router: router}
}

// GetSections returns every section and which one is active.
func (h *SectionHandler) GetSections(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]interface{}{
		"active":   h.router.Active(),
		"sections": h.router.Sections(),
	})
}

// ShowSection makes a section the active one.
func (h *SectionHandler) ShowSection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sectionID")
	if err := h.router.Show(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, map[string]string{"active": id})
}
