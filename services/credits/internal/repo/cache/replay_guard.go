package cache

import (
	"context"
	"fmt"
	"time"

	"classifieds/pkg/cache"

	"github.com/redis/go-redis/v9"
)

const replayTTL = 7 * 24 * time.Hour

// ReplayGuard remembers webhook deliveries that were already processed.
type ReplayGuard interface {
	// Claim reports whether this is the first delivery of id for provider.
	Claim(ctx context.Context, provider, id string) (bool, error)
	// Forget drops a claim so a failed delivery can be retried.
	Forget(ctx context.Context, provider, id string) error
}

type redisReplayGuard struct {
	client *redis.Client
}

// NewReplayGuard returns a Redis backed guard. With a nil client every
// delivery is treated as new.
func NewReplayGuard(client *redis.Client) ReplayGuard {
	return &redisReplayGuard{client: client}
}

func key(provider, id string) string {
	return fmt.Sprintf("webhook:%s:%s", provider, id)
}

func (g *redisReplayGuard) Claim(ctx context.Context, provider, id string) (bool, error) {
	if g.client == nil || id == "" {
		return true, nil
	}
	return cache.Claim(ctx, g.client, key(provider, id), replayTTL)
}

func (g *redisReplayGuard) Forget(ctx context.Context, provider, id string) error {
	if g.client == nil || id == "" {
		return nil
	}
	return cache.Release(ctx, g.client, key(provider, id))
}
