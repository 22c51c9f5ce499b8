package handler

import (
	"net/http"

	"earnflow/internal/model"
	"earnflow/internal/service"
	"earnflow/internal/transport/rest/middleware"

	"go.uber.org/zap"
)

// SubmissionHandler lists a user's past submissions
type SubmissionHandler struct {
	submissionSvc *service.SubmissionService
	log           *zap.Logger
}

func NewSubmissionHandler(submissionSvc *service.SubmissionService, log *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissionSvc: submissionSvc, log: log}
}

// List handles GET /v1/submissions
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	subs, err := h.submissionSvc.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if subs == nil {
		subs = []*model.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": subs})
}
