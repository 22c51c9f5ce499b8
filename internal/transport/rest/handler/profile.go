package handler

import (
	"encoding/json"
	"net/http"

	"earnflow/internal/model"
	"earnflow/internal/service"
	"earnflow/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ProfileHandler handles account settings and saved payment methods
type ProfileHandler struct {
	profileSvc *service.ProfileService
	log        *zap.Logger
}

func NewProfileHandler(profileSvc *service.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc, log: log}
}

// Get handles GET /v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(session model.Session) (*model.Profile, error) {
		return h.profileSvc.Get(r.Context(), session)
	})
}

// Update handles PUT /v1/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd model.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.respond(w, r, func(session model.Session) (*model.Profile, error) {
		return h.profileSvc.Update(r.Context(), session, upd)
	})
}

// AddPaymentMethod handles POST /v1/profile/payment-methods
func (h *ProfileHandler) AddPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.respond(w, r, func(session model.Session) (*model.Profile, error) {
		return h.profileSvc.AddPaymentMethod(r.Context(), session, req)
	})
}

// SetDefaultPaymentMethod handles PUT /v1/profile/payment-methods/{id}/default
func (h *ProfileHandler) SetDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(session model.Session) (*model.Profile, error) {
		return h.profileSvc.SetDefaultPaymentMethod(r.Context(), session, mux.Vars(r)["id"])
	})
}

// DeletePaymentMethod handles DELETE /v1/profile/payment-methods/{id}
func (h *ProfileHandler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(session model.Session) (*model.Profile, error) {
		return h.profileSvc.DeletePaymentMethod(r.Context(), session, mux.Vars(r)["id"])
	})
}

func (h *ProfileHandler) respond(w http.ResponseWriter, r *http.Request, fn func(model.Session) (*model.Profile, error)) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := fn(session)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
