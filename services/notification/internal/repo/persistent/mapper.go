package persistent

import (
	"classifieds/pkg/models"
	"classifieds/services/notification/internal/entity"
)

func ToNotificationEntity(m *models.Notification) entity.Notification {
	n := entity.Notification{
		ID:             m.ID,
		Type:           m.Type,
		UserID:         m.UserID,
		RecipientEmail: m.RecipientEmail,
		Message:        m.Message,
		CreatedAt:      m.CreatedAt,
	}
	if m.ProductID != nil {
		n.ProductID = *m.ProductID
	}
	return n
}
