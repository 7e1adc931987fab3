package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"classifieds/pkg/apperr"
	"classifieds/pkg/database"
	"classifieds/pkg/logger"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return New(db, logger.New(), nil), db
}

func createUser(t *testing.T, db *gorm.DB, credits int) *models.User {
	t.Helper()
	user := &models.User{Email: t.Name() + "@example.com", Password: "x", Credits: credits, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func transactionsOf(t *testing.T, db *gorm.DB, userID string) []models.Transaction {
	t.Helper()
	var txns []models.Transaction
	require.NoError(t, db.Where("user_id = ?", userID).Order("created_at ASC").Find(&txns).Error)
	return txns
}

func TestGetBalance(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 42)

	balance, err := l.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, balance)

	_, err = l.GetBalance(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddCredits(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 5)

	txn, err := l.AddCredits(context.Background(), user.ID, 15, "wallet", "")
	require.NoError(t, err)
	assert.Equal(t, 15, txn.Amount)
	assert.Equal(t, 20, txn.BalanceAfter)
	assert.Equal(t, models.TransactionBuyCredits, txn.Type)
	assert.Equal(t, "Purchase of 15 credits via wallet", txn.Description)

	balance, err := l.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, balance)

	txns := transactionsOf(t, db, user.ID)
	require.Len(t, txns, 1)
	assert.Equal(t, 15, txns[0].Amount)
}

func TestAddCredits_CustomDescription(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 0)

	txn, err := l.AddCredits(context.Background(), user.ID, 10, "wallet", "Test mode purchase")
	require.NoError(t, err)
	assert.Equal(t, "Test mode purchase", txn.Description)
}

func TestAddCredits_Invalid(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 5)

	for _, amount := range []int{0, -5} {
		_, err := l.AddCredits(context.Background(), user.ID, amount, "wallet", "")
		assert.ErrorIs(t, err, apperr.ErrInvalidAmount)
	}

	_, err := l.AddCredits(context.Background(), "missing", 10, "wallet", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Empty(t, transactionsOf(t, db, user.ID))
}

func TestDeduct_Scenario(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 12)
	ctx := context.Background()

	txn, err := l.Deduct(ctx, Debit{UserID: user.ID, Amount: 10, Reason: "x"})
	require.NoError(t, err)
	assert.Equal(t, -10, txn.Amount)
	assert.Equal(t, 2, txn.BalanceAfter)
	assert.Equal(t, models.TransactionSpendExtension, txn.Type)

	_, err = l.Deduct(ctx, Debit{UserID: user.ID, Amount: 10, Reason: "y"})
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	balance, err := l.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	txns := transactionsOf(t, db, user.ID)
	require.Len(t, txns, 1)
	assert.Equal(t, "x", txns[0].Description)
}

func TestDeduct_TypeRules(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 100)
	productID := "11111111-1111-1111-1111-111111111111"
	ctx := context.Background()

	txn, err := l.Deduct(ctx, Debit{UserID: user.ID, Amount: 10, Reason: "vip", ProductID: &productID})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionSpendVip, txn.Type)
	require.NotNil(t, txn.ProductID)
	assert.Equal(t, productID, *txn.ProductID)

	txn, err = l.Deduct(ctx, Debit{UserID: user.ID, Amount: 5, Reason: "extend", ProductID: &productID, Type: models.TransactionSpendExtension})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionSpendExtension, txn.Type)
}

func TestDeduct_Invalid(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 10)
	ctx := context.Background()

	_, err := l.Deduct(ctx, Debit{UserID: user.ID, Amount: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)

	_, err = l.Deduct(ctx, Debit{UserID: "missing", Amount: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	balance, _ := l.GetBalance(ctx, user.ID)
	assert.Equal(t, 10, balance)
}

func TestDeductTx_RollsBackWithCaller(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 30)
	boom := errors.New("listing update failed")

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := l.DeductTx(tx, Debit{UserID: user.ID, Amount: 10, Reason: "vip"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	balance, err := l.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, balance)
	assert.Empty(t, transactionsOf(t, db, user.ID))
}

func TestDeduct_ConcurrentNeverOverdraws(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 15)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failed    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Deduct(context.Background(), Debit{UserID: user.ID, Amount: 10, Reason: "race"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, apperr.ErrInsufficientFunds) {
				failed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, failed)

	balance, err := l.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
	assert.Len(t, transactionsOf(t, db, user.ID), 1)
}

// drainBeforeUpdate zeroes the user's balance inside the running
// transaction right before the next UPDATE on users, simulating a writer
// that slipped in after the balance was read.
func drainBeforeUpdate(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()
	fired := false
	err := db.Callback().Update().Before("gorm:update").Register("ledger_test:drain", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "users" {
			return
		}
		fired = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE users SET credits = 0 WHERE id = ?", userID)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Callback().Update().Remove("ledger_test:drain") })
}

func TestDeduct_GuardRefusesBalanceChangedAfterRead(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 15)
	drainBeforeUpdate(t, db, user.ID)

	_, err := l.Deduct(context.Background(), Debit{UserID: user.ID, Amount: 10, Reason: "race"})
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)
	assert.Contains(t, err.Error(), "balance changed concurrently")

	balance, err := l.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, balance, "the whole debit rolls back")
	assert.Empty(t, transactionsOf(t, db, user.ID))
}

func TestAddCredits_ConcurrentNoLostUpdates(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.AddCredits(context.Background(), user.ID, 1, "paytech", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := l.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, balance)
	assert.Len(t, transactionsOf(t, db, user.ID), 20)
}

func TestListTransactions(t *testing.T) {
	l, db := setupLedger(t)
	user := createUser(t, db, 0)
	other := &models.User{Email: "other@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(other).Error)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := l.AddCredits(ctx, user.ID, i, "wallet", "")
		require.NoError(t, err)
	}
	_, err := l.AddCredits(ctx, other.ID, 99, "wallet", "")
	require.NoError(t, err)

	page, total, err := l.ListTransactions(ctx, user.ID, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, 5, page[0].Amount)
	assert.Equal(t, 4, page[1].Amount)

	page, _, err = l.ListTransactions(ctx, user.ID, pagination.Params{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 1, page[0].Amount)
}
