package persistent

import (
	"classifieds/pkg/models"
	"classifieds/services/product/internal/entity"
)

func ToSellerEntity(m *models.User) *entity.Seller {
	if m == nil {
		return nil
	}

	return &entity.Seller{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Phone:     m.Phone,
		IsVip:     m.IsVip,
		IsActive:  m.IsActive,
	}
}

func ToProductEntity(m *models.Product) *entity.Product {
	if m == nil {
		return nil
	}

	photos := make([]entity.Photo, len(m.Photos))
	for i, p := range m.Photos {
		photos[i] = entity.Photo{
			ID:         p.ID,
			URL:        p.URL,
			StorageKey: p.StorageKey,
			IsPrimary:  p.IsPrimary,
			Position:   p.Position,
		}
	}

	return &entity.Product{
		ID:          m.ID,
		SellerID:    m.SellerID,
		Title:       m.Title,
		Description: m.Description,
		Category:    m.Category,
		Price:       m.Price,
		Status:      m.Status,
		Views:       m.Views,
		IsVip:       m.IsVip,
		VipUntil:    m.VipUntil,
		PublishedAt: m.PublishedAt,
		ExpiresAt:   m.ExpiresAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Seller:      ToSellerEntity(m.Seller),
		Photos:      photos,
	}
}

// ToProductModel maps a new listing for insertion. The seller association
// is left out so GORM never writes to users from here.
func ToProductModel(e *entity.Product) *models.Product {
	if e == nil {
		return nil
	}

	photos := make([]models.Photo, len(e.Photos))
	for i, p := range e.Photos {
		photos[i] = models.Photo{
			ID:         p.ID,
			URL:        p.URL,
			StorageKey: p.StorageKey,
			IsPrimary:  p.IsPrimary,
			Position:   p.Position,
		}
	}

	return &models.Product{
		ID:          e.ID,
		SellerID:    e.SellerID,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Price:       e.Price,
		Status:      e.Status,
		Views:       e.Views,
		IsVip:       e.IsVip,
		VipUntil:    e.VipUntil,
		PublishedAt: e.PublishedAt,
		ExpiresAt:   e.ExpiresAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Photos:      photos,
	}
}
