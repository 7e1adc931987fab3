package notifier

import (
	"context"
	"fmt"

	"classifieds/pkg/logger"
	"classifieds/pkg/metrics"
	"classifieds/pkg/models"

	"gorm.io/gorm"
)

// Publisher hands a notification task to the delivery pipeline.
type Publisher interface {
	PublishNotificationTask(ctx context.Context, task map[string]interface{}) error
}

// Notifier persists notification rows inside the caller's transaction and
// dispatches them once that transaction has committed. Dispatch is
// best-effort.
type Notifier struct {
	publisher Publisher
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func New(publisher Publisher, log *logger.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{publisher: publisher, logger: log, metrics: m}
}

func (n *Notifier) Record(tx *gorm.DB, notification *models.Notification) error {
	if err := tx.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// Exists reports whether a notification of this type was already recorded
// for the product and recipient.
func (n *Notifier) Exists(tx *gorm.DB, notificationType models.NotificationType, productID, recipientEmail string) (bool, error) {
	var count int64
	err := tx.Model(&models.Notification{}).
		Where("type = ? AND product_id = ? AND recipient_email = ?", notificationType, productID, recipientEmail).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check notification: %w", err)
	}
	return count > 0, nil
}

func (n *Notifier) Dispatch(ctx context.Context, notifications ...models.Notification) {
	if n.publisher == nil {
		return
	}

	for _, notification := range notifications {
		task := map[string]interface{}{
			"id":              notification.ID,
			"type":            string(notification.Type),
			"user_id":         notification.UserID,
			"recipient_email": notification.RecipientEmail,
			"message":         notification.Message,
			"priority":        priorityOf(notification.Type),
			"created_at":      notification.CreatedAt,
		}
		if notification.ProductID != nil {
			task["product_id"] = *notification.ProductID
		}

		result := "ok"
		if err := n.publisher.PublishNotificationTask(ctx, task); err != nil {
			result = "error"
			n.logger.Warn("[NOTIFIER] Failed to publish %s notification %s: %v", notification.Type, notification.ID, err)
		}
		if n.metrics != nil {
			n.metrics.Notifications.WithLabelValues(string(notification.Type), result).Inc()
		}
	}
}

func priorityOf(t models.NotificationType) int {
	switch t {
	case models.NotificationProductExpiring:
		return 8
	case models.NotificationProductRejected, models.NotificationProductExpired:
		return 5
	default:
		return 3
	}
}
