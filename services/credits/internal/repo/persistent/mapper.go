package persistent

import (
	"classifieds/pkg/models"
	"classifieds/services/credits/internal/entity"
)

func ToTransactionEntity(m *models.Transaction) *entity.Transaction {
	if m == nil {
		return nil
	}

	e := &entity.Transaction{
		ID:           m.ID,
		UserID:       m.UserID,
		Type:         m.Type,
		Amount:       m.Amount,
		BalanceAfter: m.BalanceAfter,
		Description:  m.Description,
		CreatedAt:    m.CreatedAt,
	}
	if m.ProductID != nil {
		e.ProductID = *m.ProductID
	}
	return e
}
