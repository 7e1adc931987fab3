package persistent

import (
	"context"
	"errors"
	"fmt"

	"classifieds/pkg/apperr"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/notification/internal/entity"

	"gorm.io/gorm"
)

type NotificationRepository interface {
	// History returns the persisted notifications addressed to the user,
	// by id or by their current email, newest first.
	History(ctx context.Context, userID string, page pagination.Params) ([]entity.Notification, int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) History(ctx context.Context, userID string, page pagination.Params) ([]entity.Notification, int64, error) {
	db := r.db.WithContext(ctx)

	var user models.User
	if err := db.Select("id", "email").Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
		}
		return nil, 0, fmt.Errorf("failed to load user: %w", err)
	}

	scope := db.Model(&models.Notification{}).
		Where("user_id = ? OR recipient_email = ?", user.ID, user.Email).
		Session(&gorm.Session{})

	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var rows []models.Notification
	err := scope.Order("created_at DESC").Order("id").
		Offset(page.Offset()).Limit(page.Size()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]entity.Notification, len(rows))
	for i := range rows {
		notifications[i] = ToNotificationEntity(&rows[i])
	}
	return notifications, total, nil
}
