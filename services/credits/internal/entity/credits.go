package entity

import (
	"encoding/json"
	"time"

	"classifieds/pkg/models"
)

type Transaction struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	ProductID    string                 `json:"product_id,omitempty"`
	Type         models.TransactionType `json:"type"`
	Amount       int                    `json:"amount"`
	BalanceAfter int                    `json:"balance_after"`
	Description  string                 `json:"description"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Packages maps a purchasable package name to the credits it grants.
var Packages = map[string]int{
	"10": 10,
	"15": 15,
	"25": 25,
}

type OperatorPayment struct {
	Phone    string
	Amount   int
	Operator string
}

// PaytechEvent is the body PayTech posts to the webhook. Amount arrives as
// either a number or a numeric string.
type PaytechEvent struct {
	TransactionID string      `json:"transactionId"`
	Amount        json.Number `json:"amount"`
	Status        string      `json:"status"`
	UserID        string      `json:"userId"`
}

type StripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Amount   int64             `json:"amount"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// WebhookOutcome describes what a webhook delivery did. It is logged and
// counted, never returned to the provider.
type WebhookOutcome string

const (
	WebhookCredited  WebhookOutcome = "credited"
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookFailed    WebhookOutcome = "failed"
)
