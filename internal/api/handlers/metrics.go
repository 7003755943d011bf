package handlers

import (
	"net/http"

	"github.com/ramonehamilton/churn-dashboard/internal/analytics"
	"github.com/ramonehamilton/churn-dashboard/internal/api/response"
	"github.com/ramonehamilton/churn-dashboard/internal/charts"
	"github.com/ramonehamilton/churn-dashboard/internal/metrics"
	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// ClientStatsProvider exposes analytics client statistics.
type ClientStatsProvider interface {
	GetStats() analytics.ClientStats
}

// MetricsHandler handles metrics requests.
type MetricsHandler struct {
	metrics   *metrics.DashboardMetrics
	client    ClientStatsProvider
	dashboard *views.Dashboard
}

// NewMetricsHandler creates a new MetricsHandler. client may be nil.
func NewMetricsHandler(m *metrics.DashboardMetrics, client ClientStatsProvider, dashboard *views.Dashboard) *MetricsHandler {
	return &MetricsHandler{metrics: m, client: client, dashboard: dashboard}
}

// MetricsResponse is the body of GET /metrics.
type MetricsResponse struct {
	Dashboard *metrics.DashboardStats      `json:"dashboard,omitempty"`
	Client    *analytics.ClientStats       `json:"client,omitempty"`
	Widgets   map[string]charts.OwnerStats `json:"widgets"`
}

// GetMetrics returns load metrics, client statistics and widget counts.
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, _ *http.Request) {
	resp := MetricsResponse{Widgets: make(map[string]charts.OwnerStats)}
	if h.metrics != nil {
		resp.Dashboard = h.metrics.GetStats()
	}
	if h.client != nil {
		stats := h.client.GetStats()
		resp.Client = &stats
	}
	for _, v := range h.dashboard.Views() {
		resp.Widgets[v.Name()] = v.Owner().Stats()
	}
	response.Success(w, resp)
}
