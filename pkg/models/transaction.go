package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionBuyCredits     TransactionType = "BUY_CREDITS"
	TransactionSpendVip       TransactionType = "SPEND_VIP"
	TransactionSpendExtension TransactionType = "SPEND_EXTENSION"
)

// Transaction is an append-only ledger entry. Amount is signed: positive
// for credits, negative for debits.
type Transaction struct {
	ID           string          `gorm:"type:uuid;primary_key" json:"id"`
	UserID       string          `gorm:"type:uuid;not null;index" json:"user_id"`
	ProductID    *string         `gorm:"type:uuid;index" json:"product_id,omitempty"`
	Type         TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Amount       int             `gorm:"not null" json:"amount"`
	BalanceAfter int             `gorm:"not null" json:"balance_after"`
	Description  string          `gorm:"type:text" json:"description"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
