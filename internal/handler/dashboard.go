package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/athallaarl66/crazwash-api/internal/service"
)

// DashboardServicer defines the aggregation service behind the dashboard
// endpoint. Satisfied by *service.DashboardService.
type DashboardServicer interface {
	Summary(ctx context.Context, rng string) (*service.Summary, error)
}

// DashboardHandler handles the admin dashboard endpoint.
type DashboardHandler struct {
	svc DashboardServicer
}

func NewDashboardHandler(svc DashboardServicer) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// RegisterAdminRoutes registers the dashboard endpoint.
func (h *DashboardHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/dashboard", h.Summary)
}

// Summary handles GET /admin/dashboard?range=30d.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "30d"
	}

	summary, err := h.svc.Summary(r.Context(), rng)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("dashboard summary", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
