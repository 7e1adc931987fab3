package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	inboxSize = 100
	inboxTTL  = 30 * 24 * time.Hour
)

// Inbox keeps the most recent notifications of each user and fans new ones
// out to live subscribers. The list key doubles as the pub/sub channel.
type Inbox interface {
	Push(ctx context.Context, userID string, payload []byte) error
	Range(ctx context.Context, userID string, offset, limit int) ([]string, int64, error)
	// Subscribe streams payloads published for userID until stop is called.
	Subscribe(ctx context.Context, userID string) (messages <-chan string, stop func() error)
}

func Key(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

type redisInbox struct {
	client *redis.Client
}

func NewRedisInbox(client *redis.Client) Inbox {
	return &redisInbox{client: client}
}

func (i *redisInbox) Push(ctx context.Context, userID string, payload []byte) error {
	key := Key(userID)
	_, err := i.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, inboxSize-1)
		pipe.Expire(ctx, key, inboxTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store notification in %s: %w", key, err)
	}

	if err := i.client.Publish(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification on %s: %w", key, err)
	}
	return nil
}

func (i *redisInbox) Range(ctx context.Context, userID string, offset, limit int) ([]string, int64, error) {
	key := Key(userID)
	items, err := i.client.LRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	total, err := i.client.LLen(ctx, key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", key, err)
	}
	return items, total, nil
}

func (i *redisInbox) Subscribe(ctx context.Context, userID string) (<-chan string, func() error) {
	pubsub := i.client.Subscribe(ctx, Key(userID))
	out := make(chan string)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, pubsub.Close
}
