package internal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classifieds/pkg/cache"
	"classifieds/pkg/config"
	"classifieds/pkg/database"
	"classifieds/pkg/jwt"
	"classifieds/pkg/ledger"
	"classifieds/pkg/logger"
	"classifieds/pkg/metrics"
	"classifieds/pkg/middleware"
	"classifieds/pkg/models"
	creditsHTTP "classifieds/services/credits/internal/controller/http"
	creditsCache "classifieds/services/credits/internal/repo/cache"
	"classifieds/services/credits/internal/repo/persistent"
	"classifieds/services/credits/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "classifieds/services/credits/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	jwtService  *jwt.Service
	metrics     *metrics.Metrics
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	db, err := database.Open(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (webhook replays will not be detected)", err)
		redisClient = nil
	}

	if cfg.WebhookSecret == "" {
		log.Warn("[WEBHOOK] WEBHOOK_SECRET is empty, webhook deliveries are not authenticated")
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		metrics:     metrics.Registry(cfg.MetricsNamespace),
	}, nil
}

func (a *App) Run() error {
	creditsRepo := persistent.NewCreditsRepository(ledger.New(a.db, a.log, a.metrics))
	creditsUseCase := usecase.NewCreditsUseCase(creditsRepo, creditsCache.NewReplayGuard(a.redisClient), a.log, a.metrics)
	creditsHandler := creditsHTTP.NewCreditsHandler(creditsUseCase, a.cfg.WebhookSecret, a.log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Metrics("credits", a.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	webhooks := api.Group("/webhooks")
	{
		webhooks.POST("/paytech", creditsHandler.PaytechWebhook)
		webhooks.POST("/stripe", creditsHandler.StripeWebhook)
	}

	credits := api.Group("/credits")
	credits.Use(middleware.AuthMiddleware(a.jwtService))
	credits.Use(middleware.RequireRole(models.RoleSeller, models.RoleAdmin))
	credits.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute))
	{
		credits.GET("/balance", creditsHandler.GetBalance)
		credits.POST("/buy", creditsHandler.BuyCredits)
		credits.GET("/transactions", creditsHandler.GetTransactions)
		credits.POST("/pay-operator", creditsHandler.PayWithOperator)
	}

	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: r,
	}

	go func() {
		a.log.Info("Credits service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down credits service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown: %v", err)
		return err
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	if err := database.Close(a.db); err != nil {
		a.log.Error("Error closing database: %v", err)
	}

	a.log.Info("Credits service exited")
	return nil
}
