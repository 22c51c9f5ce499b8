package handler

import (
	"net/http"
	"strconv"

	"earnflow/internal/service"
	"earnflow/internal/transport/rest/middleware"

	"go.uber.org/zap"
)

// DashboardHandler handles dashboard and leaderboard endpoints
type DashboardHandler struct {
	dashboardSvc *service.DashboardService
	log          *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardSvc *service.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc, log: log}
}

// Stats handles GET /v1/dashboard
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.dashboardSvc.Stats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Leaderboard handles GET /v1/leaderboard?limit=10
func (h *DashboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	entries, err := h.dashboardSvc.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	resp := map[string]interface{}{"entries": entries}
	if userID := middleware.GetUserID(r.Context()); userID != "" {
		if rank, err := h.dashboardSvc.Rank(r.Context(), userID); err == nil {
			resp["myRank"] = rank
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
