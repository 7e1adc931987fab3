package persistent

import (
	"classifieds/pkg/models"
	"classifieds/services/user/internal/entity"
)

func ToUserEntity(m *models.User) *entity.User {
	if m == nil {
		return nil
	}

	return &entity.User{
		ID:        m.ID,
		Email:     m.Email,
		Password:  m.Password,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Phone:     m.Phone,
		Role:      m.Role,
		Credits:   m.Credits,
		IsVip:     m.IsVip,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ToUserModel maps a new account for insertion. Credits always start at
// zero; only the ledger moves them afterwards.
func ToUserModel(e *entity.User) *models.User {
	if e == nil {
		return nil
	}

	return &models.User{
		ID:        e.ID,
		Email:     e.Email,
		Password:  e.Password,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Phone:     e.Phone,
		Role:      e.Role,
		IsVip:     e.IsVip,
		IsActive:  e.IsActive,
	}
}
