package internal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classifieds/pkg/config"
	"classifieds/pkg/jwt"
	"classifieds/pkg/logger"
	"classifieds/pkg/metrics"
	"classifieds/pkg/middleware"
	"classifieds/pkg/queue"
	notificationHTTP "classifieds/services/notification/internal/controller/http"
	"classifieds/services/notification/internal/repo/cache"
	"classifieds/services/notification/internal/repo/persistent"
	"classifieds/services/notification/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "classifieds/services/notification/docs" // Swagger docs
)

// Run serves the notification API and consumes the notification queue
// until SIGINT or SIGTERM. queueClient may be nil, in which case only the
// HTTP side runs.
func Run(cfg *config.Config, log *logger.Logger, db *gorm.DB, redisClient *redis.Client, queueClient *queue.Client) {
	jwtService := jwt.NewService(cfg.JWTSecret)
	m := metrics.Registry(cfg.MetricsNamespace)

	notificationRepo := persistent.NewNotificationRepository(db)
	notificationUseCase := usecase.NewNotificationUseCase(notificationRepo, cache.NewRedisInbox(redisClient), log, m)
	notificationHandler := notificationHTTP.NewNotificationHandler(notificationUseCase, jwtService, log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Metrics("notification", m))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	// Authenticated through the token query parameter.
	api.GET("/notifications/ws", notificationHandler.HandleWebSocket)

	protected := api.Group("/notifications")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("", notificationHandler.GetNotifications)
		protected.GET("/history", notificationHandler.GetHistory)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	if queueClient != nil {
		log.Info("Starting notification queue consumer...")
		err := queueClient.ConsumeNotificationTasks(func(task map[string]interface{}) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return notificationUseCase.HandleTask(ctx, task)
		})
		if err != nil {
			log.Error("Error starting notification queue consumer: %v", err)
		}
	} else {
		log.Warn("RabbitMQ unavailable, notifications will not be consumed")
	}

	go func() {
		log.Info("Notification service starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down notification service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	if queueClient != nil {
		queueClient.Close()
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis: %v", err)
	}

	log.Info("Notification service exited")
}
