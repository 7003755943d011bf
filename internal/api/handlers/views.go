package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/churn-dashboard/internal/api/response"
	"github.com/ramonehamilton/churn-dashboard/internal/charts"
	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// ViewHandler handles view state, load and rendering requests.
type ViewHandler struct {
	dashboard *views.Dashboard
}

// NewViewHandler creates a new ViewHandler.
func NewViewHandler(dashboard *views.Dashboard) *ViewHandler {
	return &ViewHandler{dashboard: dashboard}
}

// LoadRequest is the optional body of a load request.
type LoadRequest struct {
	Force bool `json:"force"`
}

// GetViews returns the status of every view.
func (h *ViewHandler) GetViews(w http.ResponseWriter, _ *http.Request) {
	all := h.dashboard.Views()
	statuses := make([]views.Status, len(all))
	for i, v := range all {
		statuses[i] = v.Status()
	}
	response.Success(w, statuses)
}

// GetView returns the status of one view.
func (h *ViewHandler) GetView(w http.ResponseWriter, r *http.Request) {
	v, err := h.dashboard.View(chi.URLParam(r, "view"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, v.Status())
}

// LoadView loads a view and returns its resulting status.
// A failed load responds with the backend error; the view keeps its error state.
func (h *ViewHandler) LoadView(w http.ResponseWriter, r *http.Request) {
	v, err := h.dashboard.View(chi.URLParam(r, "view"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, err)
		return
	}
	if force, err := strconv.ParseBool(r.URL.Query().Get("force")); err == nil && force {
		req.Force = true
	}

	if err := v.Load(r.Context(), views.LoadOptions{Force: req.Force, Trigger: views.TriggerAPI}); err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, v.Status())
}

// GetFragment renders the panel markup of a view.
func (h *ViewHandler) GetFragment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	if _, err := h.dashboard.View(name); err != nil {
		writeError(w, err)
		return
	}
	response.HTML(w, http.StatusOK, func(out io.Writer) error {
		return h.dashboard.RenderFragment(out, name)
	})
}

// GetChart renders one live chart as a standalone page.
func (h *ViewHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	v, err := h.dashboard.View(chi.URLParam(r, "view"))
	if err != nil {
		writeError(w, err)
		return
	}

	name := chi.URLParam(r, "chart")
	widget, ok := v.Owner().Get(name)
	if !ok {
		response.NotFound(w, errors.New("no live chart "+strconv.Quote(name)))
		return
	}
	if widget.Destroyed() {
		writeError(w, charts.ErrDestroyed)
		return
	}
	response.HTML(w, http.StatusOK, widget.Render)
}
