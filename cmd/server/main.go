package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"earnflow/internal/cache"
	"earnflow/internal/config"
	"earnflow/internal/logger"
	"earnflow/internal/metrics"
	"earnflow/internal/repository"
	"earnflow/internal/service"
	"earnflow/internal/transport/rest"
	"earnflow/internal/transport/rest/middleware"
	"earnflow/internal/transport/ws"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// @title EarnFlow API
// @version 1.0
// @description Paid tasks and surveys with guided question flows and a wallet
// @host localhost:8080
// @BasePath /v1
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("failed to ping MongoDB", zap.Error(err))
	}
	log.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	db := mongoClient.Database(cfg.Mongo.Database)
	repository.EnsureIndexes(ctx, db, log)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("failed to ping Redis", zap.Error(err))
	}
	log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	m := metrics.New(prometheus.NewRegistry())

	wsHub := ws.NewHub(ctx, log)

	// Initialize repositories
	opportunityRepo := repository.NewOpportunityRepo(db)
	submissionRepo := repository.NewSubmissionRepo(db)
	transactionRepo := repository.NewTransactionRepo(db)
	profileRepo := repository.NewProfileRepo(db)

	// Initialize caches
	completions := cache.NewCompletionCache(rdb)
	leaderboard := cache.NewLeaderboardCache(rdb)

	// Initialize services
	authSvc := service.NewAuthService(cfg.Auth)
	catalogSvc := service.NewCatalogService(opportunityRepo, completions)
	profileSvc := service.NewProfileService(profileRepo, log)
	referralSvc := service.NewReferralService(profileSvc, profileRepo, transactionRepo, leaderboard, wsHub, cfg.Referral, log)
	submissionSvc := service.NewSubmissionService(submissionRepo, transactionRepo, completions, leaderboard, log)
	submissionSvc.SetBroadcaster(wsHub)
	submissionSvc.SetCommissions(referralSvc)
	flowSvc := service.NewFlowService(catalogSvc, completions, submissionSvc, wsHub, m, log, cfg.Flow)
	walletSvc := service.NewWalletService(transactionRepo, wsHub, m, log)
	dashboardSvc := service.NewDashboardService(transactionRepo, opportunityRepo, completions, leaderboard)

	go flowSvc.Run(ctx)

	if len(cfg.Auth.AdminUsers) == 0 {
		log.Warn("no admin users configured, submissions cannot be reviewed")
	}

	router := rest.NewRouter(&rest.Container{
		AuthService:       authSvc,
		CatalogService:    catalogSvc,
		FlowService:       flowSvc,
		SubmissionService: submissionSvc,
		WalletService:     walletSvc,
		DashboardService:  dashboardSvc,
		ProfileService:    profileSvc,
		ReferralService:   referralSvc,
		AdminUsers:        cfg.Auth.AdminUsers,
		Metrics:           m,
		RateLimiter:       middleware.NewRateLimiter(ctx, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
		WSHub:             wsHub,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		Log:               log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ListenAndServe", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
