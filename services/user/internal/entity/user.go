package entity

import (
	"time"

	"classifieds/pkg/models"
)

type User struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Password  string          `json:"-"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Phone     string          `json:"phone,omitempty"`
	Role      models.UserRole `json:"role"`
	Credits   int             `json:"credits"`
	IsVip     bool            `json:"is_vip"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      models.UserRole
}
