package cache

import (
	"context"
	"fmt"
	"time"

	"classifieds/pkg/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// Claim sets key only if it is absent. It reports whether this caller won
// the key, which makes it usable both as a replay guard and as a lock.
func Claim(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (bool, error) {
	ok, err := client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

func Release(ctx context.Context, client *redis.Client, key string) error {
	return client.Del(ctx, key).Err()
}

// Lock claims key for ttl under a fresh token. The token must be handed
// back to Unlock.
func Lock(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to lock %s: %w", key, err)
	}
	return token, ok, nil
}

// Unlock releases key if token still owns it. It reports false when the
// lock expired and was taken by someone else in the meantime.
func Unlock(ctx context.Context, client *redis.Client, key, token string) (bool, error) {
	n, err := unlockScript.Run(ctx, client, []string{key}, token).Int()
	if err != nil {
		return false, fmt.Errorf("failed to unlock %s: %w", key, err)
	}
	return n == 1, nil
}
