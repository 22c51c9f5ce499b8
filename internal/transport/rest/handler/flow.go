package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"earnflow/internal/flow"
	"earnflow/internal/model"
	"earnflow/internal/service"
	"earnflow/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// FlowHandler handles question flow endpoints
type FlowHandler struct {
	flowSvc *service.FlowService
	log     *zap.Logger
}

// NewFlowHandler creates a new flow handler
func NewFlowHandler(flowSvc *service.FlowService, log *zap.Logger) *FlowHandler {
	return &FlowHandler{flowSvc: flowSvc, log: log}
}

// StartFlowRequest is the request body for starting a flow
type StartFlowRequest struct {
	OpportunityID string `json:"opportunityId"`
}

// Start handles POST /v1/flows
func (h *FlowHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req StartFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OpportunityID == "" {
		writeError(w, http.StatusBadRequest, "opportunityId is required")
		return
	}

	view, err := h.flowSvc.Start(r.Context(), session, req.OpportunityID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// Get handles GET /v1/flows/{flowId}
func (h *FlowHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.flowSvc.Get(r.Context(), session, mux.Vars(r)["flowId"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Discard handles DELETE /v1/flows/{flowId}
func (h *FlowHandler) Discard(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.flowSvc.Discard(r.Context(), session, mux.Vars(r)["flowId"]); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordAnswer handles PUT /v1/flows/{flowId}/answers/{questionId}
func (h *FlowHandler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var value model.AnswerValue
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vars := mux.Vars(r)
	view, err := h.flowSvc.RecordAnswer(r.Context(), session, vars["flowId"], vars["questionId"], value)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Advance handles POST /v1/flows/{flowId}/advance
func (h *FlowHandler) Advance(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.flowSvc.Advance(r.Context(), session, mux.Vars(r)["flowId"])
	h.writeTransition(w, view, err)
}

// Retreat handles POST /v1/flows/{flowId}/retreat
func (h *FlowHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.flowSvc.Retreat(r.Context(), session, mux.Vars(r)["flowId"])
	h.writeTransition(w, view, err)
}

// Submit handles POST /v1/flows/{flowId}/submit
func (h *FlowHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.flowSvc.SubmitAll(r.Context(), session, mux.Vars(r)["flowId"])
	h.writeTransition(w, view, err)
}

// writeTransition returns the flow after a move. A failed submission still
// carries the reverted flow so the client can offer a retry.
func (h *FlowHandler) writeTransition(w http.ResponseWriter, view *service.FlowView, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, view)
		return
	}

	var serr *flow.SubmissionError
	if errors.As(err, &serr) && view != nil {
		h.log.Warn("submission failed", zap.String("flow_id", serr.FlowID), zap.Error(serr.Err))
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":     "submission failed, please try again",
			"retryable": true,
			"flow":      view,
		})
		return
	}
	writeServiceError(w, h.log, err)
}
