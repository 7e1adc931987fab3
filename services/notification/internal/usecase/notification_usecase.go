package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"classifieds/pkg/logger"
	"classifieds/pkg/metrics"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/notification/internal/entity"
	"classifieds/services/notification/internal/repo/cache"
	"classifieds/services/notification/internal/repo/persistent"
)

const (
	DefaultInboxLimit = 50
	MaxInboxLimit     = 100
)

// errMalformedTask marks tasks that can never be delivered. They are
// dropped instead of requeued.
var errMalformedTask = errors.New("malformed notification task")

type NotificationUseCase interface {
	HandleTask(ctx context.Context, task map[string]interface{}) error
	GetInbox(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error)
	GetHistory(ctx context.Context, userID string, page pagination.Params) ([]entity.Notification, pagination.Meta, error)
	Subscribe(ctx context.Context, userID string) (<-chan string, func() error)
}

type notificationUseCase struct {
	notificationRepo persistent.NotificationRepository
	inbox            cache.Inbox
	logger           *logger.Logger
	metrics          *metrics.Metrics
}

func NewNotificationUseCase(notificationRepo persistent.NotificationRepository, inbox cache.Inbox, logger *logger.Logger, m *metrics.Metrics) NotificationUseCase {
	return &notificationUseCase{
		notificationRepo: notificationRepo,
		inbox:            inbox,
		logger:           logger,
		metrics:          m,
	}
}

// HandleTask delivers one queued notification to its recipient's inbox.
// Only storage failures are returned, so the broker redelivers those and
// nothing else.
func (uc *notificationUseCase) HandleTask(ctx context.Context, task map[string]interface{}) error {
	notification, err := parseTask(task)
	if err != nil {
		uc.logger.Error("[NOTIFICATION HANDLER] Dropping task %v: %v", task["id"], err)
		uc.count(notification.Type, "dropped")
		return nil
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		uc.count(notification.Type, "dropped")
		return nil
	}

	if err := uc.inbox.Push(ctx, notification.UserID, payload); err != nil {
		uc.count(notification.Type, "error")
		return err
	}

	uc.logger.Info("[NOTIFICATION HANDLER] Delivered %s notification %s to user %s", notification.Type, notification.ID, notification.UserID)
	uc.count(notification.Type, "ok")
	return nil
}

func parseTask(task map[string]interface{}) (entity.Notification, error) {
	str := func(key string) string {
		s, _ := task[key].(string)
		return s
	}

	n := entity.Notification{
		ID:             str("id"),
		Type:           models.NotificationType(str("type")),
		UserID:         str("user_id"),
		RecipientEmail: str("recipient_email"),
		ProductID:      str("product_id"),
		Message:        str("message"),
		CreatedAt:      time.Now().UTC(),
	}
	if raw := str("created_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			n.CreatedAt = t.UTC()
		}
	}

	switch n.Type {
	case models.NotificationProductApproved, models.NotificationProductRejected,
		models.NotificationProductExpired, models.NotificationProductExpiring:
	default:
		return n, fmt.Errorf("%w: unknown type %q", errMalformedTask, n.Type)
	}
	if n.UserID == "" || n.Message == "" {
		return n, fmt.Errorf("%w: user_id and message are required", errMalformedTask)
	}
	return n, nil
}

func (uc *notificationUseCase) GetInbox(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error) {
	if limit <= 0 || limit > MaxInboxLimit {
		limit = DefaultInboxLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := uc.inbox.Range(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	notifications := make([]entity.Notification, 0, len(items))
	for _, item := range items {
		var n entity.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			uc.logger.Warn("Skipping unreadable inbox entry for user %s: %v", userID, err)
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, total, nil
}

func (uc *notificationUseCase) GetHistory(ctx context.Context, userID string, page pagination.Params) ([]entity.Notification, pagination.Meta, error) {
	notifications, total, err := uc.notificationRepo.History(ctx, userID, page)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return notifications, pagination.NewMeta(total, page), nil
}

func (uc *notificationUseCase) Subscribe(ctx context.Context, userID string) (<-chan string, func() error) {
	return uc.inbox.Subscribe(ctx, userID)
}

func (uc *notificationUseCase) count(t models.NotificationType, result string) {
	if uc.metrics == nil {
		return
	}
	if t == "" {
		t = "unknown"
	}
	uc.metrics.InboxDelivery.WithLabelValues(string(t), result).Inc()
}
