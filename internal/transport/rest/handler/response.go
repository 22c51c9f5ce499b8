package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"earnflow/internal/flow"
	"earnflow/internal/service"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service error to a status code. Unknown errors
// are logged and reported as 500 without their text.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var verr *flow.ValidationError
	if errors.As(err, &verr) {
		body := map[string]interface{}{"error": verr.Error()}
		if verr.QuestionID != "" {
			body["questionId"] = verr.QuestionID
		}
		if verr.Unanswered > 0 {
			body["unanswered"] = verr.Unanswered
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
		return
	}

	// a refused duplicate is not worth retrying
	var serr *flow.SubmissionError
	if errors.As(err, &serr) && !errors.Is(err, service.ErrAlreadyCompleted) {
		log.Warn("submission failed", zap.String("flow_id", serr.FlowID), zap.Error(serr.Err))
		writeError(w, http.StatusBadGateway, "submission failed, please try again")
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrFlowNotFound),
		errors.Is(err, service.ErrOpportunityNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrPaymentMethodNotFound),
		errors.Is(err, service.ErrReferralCodeNotFound),
		errors.Is(err, flow.ErrUnknownQuestion):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrSubmissionPending),
		errors.Is(err, flow.ErrFlowCompleted),
		errors.Is(err, service.ErrAlreadyCompleted),
		errors.Is(err, service.ErrAlreadyReviewed),
		errors.Is(err, service.ErrAlreadyReferred),
		errors.Is(err, service.ErrReferralClosed):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidAnswer),
		errors.Is(err, service.ErrInvalidSort),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrBelowMinimum),
		errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrMissingDetails),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidProfile),
		errors.Is(err, service.ErrSelfReferral):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
