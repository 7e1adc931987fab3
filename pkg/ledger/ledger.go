// Package ledger owns user credit balances and the append-only transaction
// log. Every balance change locks the user row, applies a guarded update
// and appends its transaction inside one database transaction, so changes
// for a given user serialize and the balance can never go negative.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"classifieds/pkg/apperr"
	"classifieds/pkg/logger"
	"classifieds/pkg/metrics"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Debit describes a spend. An empty Type is SPEND_VIP when ProductID is
// set and SPEND_EXTENSION otherwise.
type Debit struct {
	UserID    string
	Amount    int
	Reason    string
	ProductID *string
	Type      models.TransactionType
}

type Ledger struct {
	db      *gorm.DB
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func New(db *gorm.DB, log *logger.Logger, m *metrics.Metrics) *Ledger {
	return &Ledger{db: db, logger: log, metrics: m}
}

func (l *Ledger) GetBalance(ctx context.Context, userID string) (int, error) {
	var user models.User
	err := l.db.WithContext(ctx).Select("id", "credits").Where("id = ?", userID).First(&user).Error
	if err != nil {
		return 0, userError(userID, err)
	}
	return user.Credits, nil
}

func (l *Ledger) AddCredits(ctx context.Context, userID string, amount int, source, description string) (*models.Transaction, error) {
	var txn *models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = l.AddCreditsTx(tx, userID, amount, source, description)
		return err
	})
	l.observe("add", err)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// AddCreditsTx credits a user inside the caller's transaction.
func (l *Ledger) AddCreditsTx(tx *gorm.DB, userID string, amount int, source, description string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperr.ErrInvalidAmount
	}

	user, err := lockUser(tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", amount)).Error; err != nil {
		return nil, fmt.Errorf("failed to credit user: %w", err)
	}

	if description == "" {
		description = fmt.Sprintf("Purchase of %d credits via %s", amount, source)
	}
	txn := &models.Transaction{
		UserID:       userID,
		Type:         models.TransactionBuyCredits,
		Amount:       amount,
		BalanceAfter: user.Credits + amount,
		Description:  description,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	l.logger.Info("[LEDGER] Credited %d to user %s via %s, balance=%d", amount, userID, source, txn.BalanceAfter)
	return txn, nil
}

func (l *Ledger) Deduct(ctx context.Context, d Debit) (*models.Transaction, error) {
	var txn *models.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = l.DeductTx(tx, d)
		return err
	})
	l.observe("deduct", err)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// DeductTx debits a user inside the caller's transaction. Nothing is
// written when the balance does not cover the amount.
func (l *Ledger) DeductTx(tx *gorm.DB, d Debit) (*models.Transaction, error) {
	if d.Amount <= 0 {
		return nil, apperr.ErrInvalidAmount
	}

	user, err := lockUser(tx, d.UserID)
	if err != nil {
		return nil, err
	}
	if user.Credits < d.Amount {
		return nil, fmt.Errorf("%w: balance %d, required %d", apperr.ErrInsufficientFunds, user.Credits, d.Amount)
	}

	res := tx.Model(&models.User{}).
		Where("id = ? AND credits >= ?", d.UserID, d.Amount).
		Update("credits", gorm.Expr("credits - ?", d.Amount))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to debit user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: balance changed concurrently", apperr.ErrInsufficientFunds)
	}

	txnType := d.Type
	if txnType == "" {
		txnType = models.TransactionSpendExtension
		if d.ProductID != nil {
			txnType = models.TransactionSpendVip
		}
	}

	txn := &models.Transaction{
		UserID:       d.UserID,
		ProductID:    d.ProductID,
		Type:         txnType,
		Amount:       -d.Amount,
		BalanceAfter: user.Credits - d.Amount,
		Description:  d.Reason,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	l.logger.Info("[LEDGER] Debited %d from user %s (%s), balance=%d", d.Amount, d.UserID, txnType, txn.BalanceAfter)
	return txn, nil
}

// ListTransactions returns a page of the user's transactions, newest first,
// and the total count.
func (l *Ledger) ListTransactions(ctx context.Context, userID string, p pagination.Params) ([]models.Transaction, int64, error) {
	query := l.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	transactions := make([]models.Transaction, 0, p.Size())
	if err := query.Order("created_at DESC").Order("id DESC").
		Limit(p.Size()).Offset(p.Offset()).
		Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, total, nil
}

func lockUser(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "credits").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, userError(userID, err)
	}
	return &user, nil
}

func userError(userID string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	return fmt.Errorf("failed to load user %s: %w", userID, err)
}

func (l *Ledger) observe(op string, err error) {
	if l.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrInsufficientFunds):
		result = "insufficient_funds"
	case errors.Is(err, apperr.ErrNotFound):
		result = "not_found"
	case errors.Is(err, apperr.ErrInvalidInput):
		result = "invalid"
	default:
		result = "error"
	}
	l.metrics.LedgerOps.WithLabelValues(op, result).Inc()
}
