package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser      UserRole = "USER"
	RoleSeller    UserRole = "SELLER"
	RoleModerator UserRole = "MODERATOR"
	RoleAdmin     UserRole = "ADMIN"
)

var userRoles = map[UserRole]struct{}{
	RoleUser:      {},
	RoleSeller:    {},
	RoleModerator: {},
	RoleAdmin:     {},
}

func (r UserRole) Valid() bool {
	_, ok := userRoles[r]
	return ok
}

// ParseUserRole accepts only the closed set of roles.
func ParseUserRole(s string) (UserRole, error) {
	r := UserRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

type User struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FirstName string    `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string    `gorm:"type:varchar(100)" json:"last_name"`
	Phone     string    `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Role      UserRole  `gorm:"type:varchar(20);not null" json:"role"`
	Credits   int       `gorm:"not null;default:0" json:"credits"`
	IsVip     bool      `gorm:"not null" json:"is_vip"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
