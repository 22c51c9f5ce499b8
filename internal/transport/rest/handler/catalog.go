package handler

import (
	"net/http"

	"earnflow/internal/model"
	"earnflow/internal/service"
	"earnflow/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CatalogHandler handles task and survey listing endpoints
type CatalogHandler struct {
	catalogSvc *service.CatalogService
	log        *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogSvc *service.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc, log: log}
}

// List handles GET /v1/catalog?kind=&category=&q=&sort=
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.catalogSvc.List(r.Context(), model.CatalogQuery{
		Kind:     model.OpportunityKind(q.Get("kind")),
		Category: q.Get("category"),
		Search:   q.Get("q"),
		SortBy:   q.Get("sort"),
		UserID:   middleware.GetUserID(r.Context()),
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /v1/catalog/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.catalogSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
