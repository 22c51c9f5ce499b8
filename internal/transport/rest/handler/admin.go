package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"earnflow/internal/model"
	"earnflow/internal/service"
	"earnflow/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AdminHandler handles operator endpoints for reviewing submissions
type AdminHandler struct {
	submissionSvc *service.SubmissionService
	log           *zap.Logger
}

func NewAdminHandler(submissionSvc *service.SubmissionService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{submissionSvc: submissionSvc, log: log}
}

// ListSubmissions handles GET /v1/admin/submissions?status=&limit=
func (h *AdminHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	subs, err := h.submissionSvc.ListByStatus(r.Context(), q.Get("status"), limit)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": subs})
}

// Review handles POST /v1/admin/submissions/{id}/review
func (h *AdminHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req model.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := mux.Vars(r)["id"]
	sub, err := h.submissionSvc.Review(r.Context(), id, req.Approve)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	h.log.Info("submission review applied",
		zap.String("reviewer_id", middleware.GetUserID(r.Context())),
		zap.String("submission_id", id),
		zap.Bool("approve", req.Approve),
	)
	writeJSON(w, http.StatusOK, sub)
}
