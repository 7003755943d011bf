package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ramonehamilton/churn-dashboard/internal/analytics"
	"github.com/ramonehamilton/churn-dashboard/internal/api/response"
	"github.com/ramonehamilton/churn-dashboard/internal/charts"
	"github.com/ramonehamilton/churn-dashboard/internal/storage"
	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// StatusFor maps a dashboard error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, views.ErrUnknownSection),
		errors.Is(err, views.ErrUnknownView),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, charts.ErrDestroyed):
		return http.StatusNotFound
	case errors.Is(err, views.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var apiErr *analytics.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case analytics.ErrRateLimited:
			return http.StatusTooManyRequests
		case analytics.ErrInvalidParams:
			return http.StatusBadRequest
		default:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	response.Error(w, StatusFor(err), err)
}
