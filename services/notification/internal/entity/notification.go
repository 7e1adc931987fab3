package entity

import (
	"time"

	"classifieds/pkg/models"
)

// Notification is what lands in a user's inbox and on their live stream.
type Notification struct {
	ID             string                  `json:"id"`
	Type           models.NotificationType `json:"type"`
	UserID         string                  `json:"user_id"`
	RecipientEmail string                  `json:"recipient_email"`
	ProductID      string                  `json:"product_id,omitempty"`
	Message        string                  `json:"message"`
	CreatedAt      time.Time               `json:"created_at"`
}
