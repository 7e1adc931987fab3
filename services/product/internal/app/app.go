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
	"classifieds/pkg/notifier"
	"classifieds/pkg/queue"
	"classifieds/pkg/s3"
	productHTTP "classifieds/services/product/internal/controller/http"
	"classifieds/services/product/internal/repo/persistent"
	"classifieds/services/product/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "classifieds/services/product/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	s3Client    *s3.Client
	queueClient *queue.Client
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
		log.Warn("Failed to connect to redis: %v (continuing without rate limiting)", err)
		redisClient = nil
	}

	s3Client, err := s3.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create S3 client: %v", err)
		return nil, err
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		s3Client:    s3Client,
		queueClient: queueClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		metrics:     metrics.Registry(cfg.MetricsNamespace),
	}, nil
}

func (a *App) Run() error {
	var publisher notifier.Publisher
	if a.queueClient != nil {
		publisher = a.queueClient
	}

	productRepo := persistent.NewProductRepository(a.db)
	productUseCase := usecase.NewProductUseCase(
		productRepo,
		ledger.New(a.db, a.log, a.metrics),
		notifier.New(publisher, a.log, a.metrics),
		a.s3Client,
		a.log,
	)
	productHandler := productHTTP.NewProductHandler(productUseCase, a.log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Metrics("product", a.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute))

	public := api.Group("")
	public.Use(middleware.OptionalAuth(a.jwtService))
	{
		public.GET("/products", productHandler.ListProducts)
		public.GET("/products/:id", productHandler.GetProduct)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(a.jwtService))
	{
		protected.POST("/products", productHandler.CreateProduct)
		protected.POST("/products/:id/upgrade-vip", productHandler.UpgradeToVip)
		protected.POST("/products/:id/extend", productHandler.ExtendDuration)

		moderation := protected.Group("")
		moderation.Use(middleware.RequireRole(models.RoleModerator, models.RoleAdmin))
		{
			moderation.GET("/products/moderation/pending", productHandler.ListPending)
			moderation.POST("/products/:id/approve", productHandler.Approve)
			moderation.POST("/products/:id/reject", productHandler.Reject)
		}

		admin := protected.Group("")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.DELETE("/products/:id", productHandler.DeleteProduct)
		}
	}

	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: r,
	}

	go func() {
		a.log.Info("Product service starting on port %s", a.cfg.ServerPort)
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
	a.log.Info("Shutting down product service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown: %v", err)
		return err
	}

	if a.queueClient != nil {
		a.queueClient.Close()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	if err := database.Close(a.db); err != nil {
		a.log.Error("Error closing database: %v", err)
	}

	a.log.Info("Product service exited")
	return nil
}
