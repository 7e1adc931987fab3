package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationProductApproved NotificationType = "PRODUCT_APPROVED"
	NotificationProductRejected NotificationType = "PRODUCT_REJECTED"
	NotificationProductExpired  NotificationType = "PRODUCT_EXPIRED"
	NotificationProductExpiring NotificationType = "PRODUCT_EXPIRING"
)

type Notification struct {
	ID             string           `gorm:"type:uuid;primary_key" json:"id"`
	Type           NotificationType `gorm:"type:varchar(30);not null;index:idx_notifications_dedup,priority:1" json:"type"`
	Message        string           `gorm:"type:text;not null" json:"message"`
	RecipientEmail string           `gorm:"not null;index;index:idx_notifications_dedup,priority:3" json:"recipient_email"`
	UserID         string           `gorm:"type:uuid;index" json:"user_id"`
	ProductID      *string          `gorm:"type:uuid;index:idx_notifications_dedup,priority:2" json:"product_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{&User{}, &Product{}, &Photo{}, &Transaction{}, &Notification{}}
}
