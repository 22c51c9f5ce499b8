package handler

import (
	"encoding/json"
	"net/http"

	"earnflow/internal/model"
	"earnflow/internal/service"
	"earnflow/internal/transport/rest/middleware"

	"go.uber.org/zap"
)

// WalletHandler handles wallet endpoints
type WalletHandler struct {
	walletSvc *service.WalletService
	log       *zap.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletSvc *service.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, log: log}
}

// Summary handles GET /v1/wallet
func (h *WalletHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.walletSvc.Summary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Withdraw handles POST /v1/wallet/withdrawals
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.walletSvc.Withdraw(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}
