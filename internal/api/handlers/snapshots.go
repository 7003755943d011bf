package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/churn-dashboard/internal/api/response"
	"github.com/ramonehamilton/churn-dashboard/internal/storage"
	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// SnapshotLister lists stored snapshots.
type SnapshotLister interface {
	List(ctx context.Context, view string, limit int) ([]storage.Snapshot, error)
}

// SnapshotHandler handles snapshot history requests.
type SnapshotHandler struct {
	store     SnapshotLister
	dashboard *views.Dashboard
}

// NewSnapshotHandler creates a new SnapshotHandler. store may be nil when
// snapshot storage is disabled.
func NewSnapshotHandler(store SnapshotLister, dashboard *views.Dashboard) *SnapshotHandler {
	return &SnapshotHandler{store: store, dashboard: dashboard}
}

// ListSnapshots returns the stored snapshots of a view, newest first.
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.ServiceUnavailable(w, errors.New("snapshot storage is disabled"))
		return
	}

	view := chi.URLParam(r, "view")
	if _, err := h.dashboard.View(view); err != nil {
		writeError(w, err)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	snaps, err := h.store.List(r.Context(), view, limit)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	if snaps == nil {
		snaps = []storage.Snapshot{}
	}
	response.Success(w, snaps)
}
