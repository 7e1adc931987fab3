package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classifieds/pkg/cache"
	"classifieds/pkg/config"
	"classifieds/pkg/database"
	"classifieds/pkg/logger"
	"classifieds/pkg/metrics"
	"classifieds/pkg/notifier"
	"classifieds/pkg/queue"
	"classifieds/services/product/internal/repo/persistent"
	"classifieds/services/product/internal/usecase"

	"github.com/redis/go-redis/v9"
)

const lockKey = "sweeper:lock"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	once := flag.Bool("once", false, "Run both jobs once and exit (for an external cron trigger)")
	interval := flag.Duration("interval", cfg.SweepInterval, "Time between sweeps")
	flag.Parse()

	log := logger.New()
	if err := checkInterval(*interval); err != nil {
		log.Error("[SWEEPER] %v", err)
		os.Exit(2)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer database.Close(db)

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("[SWEEPER] Redis unavailable, running without the run lock: %v", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var publisher notifier.Publisher
	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (notifications are stored but not published)", err)
	} else {
		publisher = queueClient
		defer queueClient.Close()
	}

	m := metrics.Registry(cfg.MetricsNamespace)
	sweeper := usecase.NewSweeperUseCase(
		persistent.NewProductRepository(db),
		notifier.New(publisher, log, m),
		log,
		m,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		sweep(ctx, sweeper, redisClient, *interval, log)
		return
	}

	log.Info("[SWEEPER] Running every %s", *interval)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	sweep(ctx, sweeper, redisClient, *interval, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("[SWEEPER] Shutting down")
			return
		case <-ticker.C:
			sweep(ctx, sweeper, redisClient, *interval, log)
		}
	}
}

// checkInterval rejects non-positive intervals. An unparsable
// SWEEP_INTERVAL loads as 0, and time.NewTicker panics on it.
func checkInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	return nil
}

func sweep(ctx context.Context, sweeper usecase.SweeperUseCase, redisClient *redis.Client, ttl time.Duration, log *logger.Logger) {
	if redisClient != nil {
		token, won, err := cache.Lock(ctx, redisClient, lockKey, ttl)
		switch {
		case err != nil:
			log.Warn("[SWEEPER] Lock unavailable, sweeping anyway: %v", err)
		case !won:
			log.Info("[SWEEPER] Another sweeper holds the lock, skipping")
			return
		default:
			defer func() {
				released, err := cache.Unlock(context.Background(), redisClient, lockKey, token)
				if err != nil {
					log.Warn("[SWEEPER] Failed to release lock: %v", err)
				} else if !released {
					log.Warn("[SWEEPER] Lock expired before the sweep finished")
				}
			}()
		}
	}

	now := time.Now().UTC()
	result, err := sweeper.ExpireOldProducts(ctx, now)
	if err != nil {
		log.Error("[SWEEPER] Expiry run finished with errors: %v", err)
	}

	result.Notified, err = sweeper.NotifyExpiringProducts(ctx, now)
	if err != nil {
		log.Error("[SWEEPER] Expiry warnings finished with errors: %v", err)
	}

	log.Info("[SWEEPER] Sweep done: expired=%d vip_cleared=%d notified=%d", result.Expired, result.VipCleared, result.Notified)
}
