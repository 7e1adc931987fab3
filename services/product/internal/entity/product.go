package entity

import (
	"time"

	"classifieds/pkg/models"
)

type Seller struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	IsVip     bool   `json:"is_vip"`
	IsActive  bool   `json:"-"`
}

type Photo struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	StorageKey string `json:"-"`
	IsPrimary  bool   `json:"is_primary"`
	Position   int    `json:"position"`
}

type Product struct {
	ID          string               `json:"id"`
	SellerID    string               `json:"seller_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Price       *float64             `json:"price,omitempty"`
	Status      models.ProductStatus `json:"status"`
	Views       int                  `json:"views"`
	IsVip       bool                 `json:"is_vip"`
	VipUntil    *time.Time           `json:"vip_until,omitempty"`
	PublishedAt *time.Time           `json:"published_at,omitempty"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Seller      *Seller              `json:"seller,omitempty"`
	Photos      []Photo              `json:"photos"`
}

// HasActiveVip reports whether the listing's VIP placement is in effect at now.
func (p *Product) HasActiveVip(now time.Time) bool {
	return p.IsVip && (p.VipUntil == nil || p.VipUntil.After(now))
}

type ListFilter struct {
	Status   models.ProductStatus
	SellerID string
	Search   string
}
