package rest

import (
	"net/http"

	"earnflow/internal/metrics"
	"earnflow/internal/service"
	"earnflow/internal/transport/rest/handler"
	"earnflow/internal/transport/rest/middleware"
	"earnflow/internal/transport/ws"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService       *service.AuthService
	CatalogService    *service.CatalogService
	FlowService       *service.FlowService
	SubmissionService *service.SubmissionService
	WalletService     *service.WalletService
	DashboardService  *service.DashboardService
	ProfileService    *service.ProfileService
	ReferralService   *service.ReferralService
	AdminUsers        []string
	Metrics           *metrics.Metrics
	RateLimiter       *middleware.RateLimiter
	WSHub             *ws.Hub
	AllowedOrigins    []string
	Log               *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	// Initialize handlers
	catalogHandler := handler.NewCatalogHandler(c.CatalogService, log)
	flowHandler := handler.NewFlowHandler(c.FlowService, log)
	submissionHandler := handler.NewSubmissionHandler(c.SubmissionService, log)
	walletHandler := handler.NewWalletHandler(c.WalletService, log)
	dashboardHandler := handler.NewDashboardHandler(c.DashboardService, log)
	profileHandler := handler.NewProfileHandler(c.ProfileService, log)
	referralHandler := handler.NewReferralHandler(c.ReferralService, log)
	adminHandler := handler.NewAdminHandler(c.SubmissionService, log)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(middleware.Secure)
	if c.Metrics != nil {
		r.Use(c.Metrics.Middleware)
		r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// WebSocket route (public with token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.AllowedOrigins, log)
		v1.HandleFunc("/ws", wsHandler.UserWS).Methods("GET")
	}

	// User routes (require user auth)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)
	if c.RateLimiter != nil {
		userRoutes.Use(c.RateLimiter.Middleware)
	}

	userRoutes.HandleFunc("/catalog", catalogHandler.List).Methods("GET")
	userRoutes.HandleFunc("/catalog/{id}", catalogHandler.Get).Methods("GET")

	userRoutes.HandleFunc("/flows", flowHandler.Start).Methods("POST")
	userRoutes.HandleFunc("/flows/{flowId}", flowHandler.Get).Methods("GET")
	userRoutes.HandleFunc("/flows/{flowId}", flowHandler.Discard).Methods("DELETE")
	userRoutes.HandleFunc("/flows/{flowId}/answers/{questionId}", flowHandler.RecordAnswer).Methods("PUT")
	userRoutes.HandleFunc("/flows/{flowId}/advance", flowHandler.Advance).Methods("POST")
	userRoutes.HandleFunc("/flows/{flowId}/retreat", flowHandler.Retreat).Methods("POST")
	userRoutes.HandleFunc("/flows/{flowId}/submit", flowHandler.Submit).Methods("POST")

	userRoutes.HandleFunc("/submissions", submissionHandler.List).Methods("GET")

	userRoutes.HandleFunc("/wallet", walletHandler.Summary).Methods("GET")
	userRoutes.HandleFunc("/wallet/withdrawals", walletHandler.Withdraw).Methods("POST")

	userRoutes.HandleFunc("/dashboard", dashboardHandler.Stats).Methods("GET")
	userRoutes.HandleFunc("/leaderboard", dashboardHandler.Leaderboard).Methods("GET")

	userRoutes.HandleFunc("/profile", profileHandler.Get).Methods("GET")
	userRoutes.HandleFunc("/profile", profileHandler.Update).Methods("PUT")
	userRoutes.HandleFunc("/profile/payment-methods", profileHandler.AddPaymentMethod).Methods("POST")
	userRoutes.HandleFunc("/profile/payment-methods/{id}/default", profileHandler.SetDefaultPaymentMethod).Methods("PUT")
	userRoutes.HandleFunc("/profile/payment-methods/{id}", profileHandler.DeletePaymentMethod).Methods("DELETE")

	userRoutes.HandleFunc("/referrals", referralHandler.Summary).Methods("GET")
	userRoutes.HandleFunc("/referrals/claim", referralHandler.Claim).Methods("POST")

	// Admin routes (require user auth and an operator id)
	adminRoutes := v1.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(authMW.RequireUser)
	adminRoutes.Use(middleware.RequireAdmin(c.AdminUsers))

	adminRoutes.HandleFunc("/submissions", adminHandler.ListSubmissions).Methods("GET")
	adminRoutes.HandleFunc("/submissions/{id}/review", adminHandler.Review).Methods("POST")

	// CORS wraps the whole router so preflight requests never reach route matching
	withCORS := cors.Handler(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return middleware.RequestLogger(log)(withCORS(r))
}
