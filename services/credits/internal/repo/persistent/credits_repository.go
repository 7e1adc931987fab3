package persistent

import (
	"context"

	"classifieds/pkg/ledger"
	"classifieds/pkg/pagination"
	"classifieds/services/credits/internal/entity"
)

type CreditsRepository interface {
	GetBalance(ctx context.Context, userID string) (int, error)
	AddCredits(ctx context.Context, userID string, amount int, source, description string) (*entity.Transaction, error)
	ListTransactions(ctx context.Context, userID string, page pagination.Params) ([]*entity.Transaction, int64, error)
}

type creditsRepository struct {
	ledger *ledger.Ledger
}

func NewCreditsRepository(l *ledger.Ledger) CreditsRepository {
	return &creditsRepository{ledger: l}
}

func (r *creditsRepository) GetBalance(ctx context.Context, userID string) (int, error) {
	return r.ledger.GetBalance(ctx, userID)
}

func (r *creditsRepository) AddCredits(ctx context.Context, userID string, amount int, source, description string) (*entity.Transaction, error) {
	txn, err := r.ledger.AddCredits(ctx, userID, amount, source, description)
	if err != nil {
		return nil, err
	}
	return ToTransactionEntity(txn), nil
}

func (r *creditsRepository) ListTransactions(ctx context.Context, userID string, page pagination.Params) ([]*entity.Transaction, int64, error) {
	txns, total, err := r.ledger.ListTransactions(ctx, userID, page)
	if err != nil {
		return nil, 0, err
	}

	transactions := make([]*entity.Transaction, len(txns))
	for i := range txns {
		transactions[i] = ToTransactionEntity(&txns[i])
	}
	return transactions, total, nil
}
