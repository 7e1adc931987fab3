package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	StatusPending  ProductStatus = "PENDING"
	StatusApproved ProductStatus = "APPROVED"
	StatusRejected ProductStatus = "REJECTED"
	StatusExpired  ProductStatus = "EXPIRED"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

func ParseProductStatus(s string) (ProductStatus, error) {
	st := ProductStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid product status %q", s)
	}
	return st, nil
}

type Product struct {
	ID          string        `gorm:"type:uuid;primary_key" json:"id"`
	SellerID    string        `gorm:"type:uuid;not null;index" json:"seller_id"`
	Title       string        `gorm:"type:varchar(200);not null" json:"title"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Category    string        `gorm:"type:varchar(100);not null;index" json:"category"`
	Price       *float64      `json:"price,omitempty"`
	Status      ProductStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Views       int           `gorm:"not null;default:0" json:"views"`
	IsVip       bool          `gorm:"not null" json:"is_vip"`
	VipUntil    *time.Time    `json:"vip_until,omitempty"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
	ExpiresAt   *time.Time    `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Seller *User   `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Photos []Photo `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"photos"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	return nil
}

type Photo struct {
	ID         string    `gorm:"type:uuid;primary_key" json:"id"`
	ProductID  string    `gorm:"type:uuid;not null;index" json:"product_id"`
	URL        string    `gorm:"type:text;not null" json:"url"`
	StorageKey string    `gorm:"type:text" json:"storage_key,omitempty"`
	IsPrimary  bool      `gorm:"not null" json:"is_primary"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

func (p *Photo) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
