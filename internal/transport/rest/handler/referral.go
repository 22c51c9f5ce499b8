package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"earnflow/internal/model"
	"earnflow/internal/service"
	"earnflow/internal/transport/rest/middleware"

	"go.uber.org/zap"
)

// ReferralHandler handles referral endpoints
type ReferralHandler struct {
	referralSvc *service.ReferralService
	log         *zap.Logger
}

func NewReferralHandler(referralSvc *service.ReferralService, log *zap.Logger) *ReferralHandler {
	return &ReferralHandler{referralSvc: referralSvc, log: log}
}

// Summary handles GET /v1/referrals
func (h *ReferralHandler) Summary(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.referralSvc.Summary(r.Context(), session)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Claim handles POST /v1/referrals/claim
func (h *ReferralHandler) Claim(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.ReferralClaim
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	profile, err := h.referralSvc.Claim(r.Context(), session, req.Code)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
