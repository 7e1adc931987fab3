package queue

import (
	"context"
	"testing"

	"classifieds/pkg/config"
	"classifieds/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestPriority(t *testing.T) {
	assert.Equal(t, uint8(1), Priority(map[string]interface{}{}))
	assert.Equal(t, uint8(8), Priority(map[string]interface{}{"priority": 8}))
	assert.Equal(t, uint8(8), Priority(map[string]interface{}{"priority": float64(8)}))
	assert.Equal(t, uint8(10), Priority(map[string]interface{}{"priority": 42}))
	assert.Equal(t, uint8(0), Priority(map[string]interface{}{"priority": -3}))
}

func TestPublishNotificationTask_RequiresType(t *testing.T) {
	c := &Client{logger: logger.New()}

	err := c.PublishNotificationTask(context.Background(), map[string]interface{}{"message": "hi"})
	assert.Error(t, err)
}

func TestNewRabbitMQClient_Unreachable(t *testing.T) {
	cfg := &config.Config{RabbitMQHost: "127.0.0.1", RabbitMQPort: "1", RabbitMQUser: "guest", RabbitMQPassword: "guest"}

	client, err := NewRabbitMQClient(cfg, logger.New())
	assert.Error(t, err)
	assert.Nil(t, client)
}
