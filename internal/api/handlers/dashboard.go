package handlers

import (
	"context"
	"net/http"

	"github.com/dobbyjj/codeme/internal/api"
	"github.com/dobbyjj/codeme/internal/api/middleware"
	"github.com/dobbyjj/codeme/internal/service"
)

type DashboardService interface {
	GetOverview(ctx context.Context, userID string) (*service.Overview, error)
}

type DashboardHandler struct {
	svc DashboardService
}

func NewDashboardHandler(svc DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	overview, err := h.svc.GetOverview(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, overview)
}
