package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"classifieds/pkg/apperr"
	"classifieds/pkg/database"
	"classifieds/pkg/ledger"
	"classifieds/pkg/logger"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/credits/internal/entity"
	"classifieds/services/credits/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryGuard struct {
	mu      sync.Mutex
	seen    map[string]bool
	failing bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: map[string]bool{}}
}

func (g *memoryGuard) Claim(ctx context.Context, provider, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return false, errors.New("redis down")
	}
	k := provider + ":" + id
	if g.seen[k] {
		return false, nil
	}
	g.seen[k] = true
	return true, nil
}

func (g *memoryGuard) Forget(ctx context.Context, provider, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, provider+":"+id)
	return nil
}

func setup(t *testing.T) (CreditsUseCase, *gorm.DB, *memoryGuard) {
	t.Helper()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	log := logger.New()
	guard := newMemoryGuard()
	repo := persistent.NewCreditsRepository(ledger.New(db, log, nil))
	return NewCreditsUseCase(repo, guard, log, nil), db, guard
}

func createSeller(t *testing.T, db *gorm.DB, credits int) *models.User {
	t.Helper()
	user := &models.User{Email: "seller@example.com", Password: "x", Role: models.RoleSeller, Credits: credits, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestBuyPackage(t *testing.T) {
	uc, db, _ := setup(t)
	user := createSeller(t, db, 5)

	balance, err := uc.BuyPackage(context.Background(), user.ID, "15")
	require.NoError(t, err)
	assert.Equal(t, 20, balance)

	for _, pkg := range []string{"", "5", "100", "ten"} {
		_, err := uc.BuyPackage(context.Background(), user.ID, pkg)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, pkg)
		assert.Contains(t, err.Error(), "Invalid package")
	}

	items, meta, err := uc.ListTransactions(context.Background(), user.ID, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Total)
	require.Len(t, items, 1)
	assert.Equal(t, models.TransactionBuyCredits, items[0].Type)
	assert.Equal(t, 15, items[0].Amount)
}

func TestPayWithOperator(t *testing.T) {
	uc, db, _ := setup(t)
	user := createSeller(t, db, 0)
	ctx := context.Background()

	balance, err := uc.PayWithOperator(ctx, user.ID, entity.OperatorPayment{Phone: "+221770000000", Amount: 30, Operator: "orange"})
	require.NoError(t, err)
	assert.Equal(t, 30, balance)

	items, _, err := uc.ListTransactions(ctx, user.ID, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Purchase of 30 credits via operator-orange", items[0].Description)

	_, err = uc.PayWithOperator(ctx, user.ID, entity.OperatorPayment{Phone: "", Amount: 30, Operator: "orange"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = uc.PayWithOperator(ctx, user.ID, entity.OperatorPayment{Phone: "1", Amount: 0, Operator: "orange"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = uc.PayWithOperator(ctx, user.ID, entity.OperatorPayment{Phone: "1", Amount: -3, Operator: "orange"})
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)
}

func TestHandlePaytech(t *testing.T) {
	uc, db, _ := setup(t)
	user := createSeller(t, db, 0)
	ctx := context.Background()

	event := entity.PaytechEvent{TransactionID: "pt-1", Amount: "25", Status: "SUCCESS", UserID: user.ID}
	assert.Equal(t, entity.WebhookCredited, uc.HandlePaytech(ctx, event))
	assert.Equal(t, entity.WebhookDuplicate, uc.HandlePaytech(ctx, event))

	balance, err := uc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, balance)

	pending := entity.PaytechEvent{TransactionID: "pt-2", Amount: "25", Status: "PENDING", UserID: user.ID}
	assert.Equal(t, entity.WebhookIgnored, uc.HandlePaytech(ctx, pending))

	bad := entity.PaytechEvent{TransactionID: "pt-3", Amount: "abc", Status: "SUCCESS", UserID: user.ID}
	assert.Equal(t, entity.WebhookFailed, uc.HandlePaytech(ctx, bad))

	balance, _ = uc.GetBalance(ctx, user.ID)
	assert.Equal(t, 25, balance)
}

func TestHandlePaytech_UnknownUserCanBeRetried(t *testing.T) {
	uc, db, guard := setup(t)
	ctx := context.Background()

	event := entity.PaytechEvent{TransactionID: "pt-9", Amount: "10", Status: "SUCCESS", UserID: "11111111-1111-1111-1111-111111111111"}
	assert.Equal(t, entity.WebhookFailed, uc.HandlePaytech(ctx, event))
	assert.Empty(t, guard.seen, "a failed credit releases its claim")

	user := &models.User{ID: event.UserID, Email: "late@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	assert.Equal(t, entity.WebhookCredited, uc.HandlePaytech(ctx, event))
}

func TestHandlePaytech_GuardDownStillCredits(t *testing.T) {
	uc, db, guard := setup(t)
	user := createSeller(t, db, 0)
	guard.failing = true

	event := entity.PaytechEvent{TransactionID: "pt-1", Amount: "10", Status: "SUCCESS", UserID: user.ID}
	assert.Equal(t, entity.WebhookCredited, uc.HandlePaytech(context.Background(), event))
}

func TestHandleStripe(t *testing.T) {
	uc, db, _ := setup(t)
	user := createSeller(t, db, 1)
	ctx := context.Background()

	var event entity.StripeEvent
	event.ID = "evt_1"
	event.Type = "payment_intent.succeeded"
	event.Data.Object.ID = "pi_1"
	event.Data.Object.Metadata = map[string]string{"userId": user.ID, "credits": "10"}

	assert.Equal(t, entity.WebhookCredited, uc.HandleStripe(ctx, event))
	event.ID = "evt_1_retry"
	assert.Equal(t, entity.WebhookDuplicate, uc.HandleStripe(ctx, event))

	balance, err := uc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, balance)

	other := event
	other.Type = "payment_method.attached"
	assert.Equal(t, entity.WebhookIgnored, uc.HandleStripe(ctx, other))

	noMeta := event
	noMeta.Data.Object.ID = "pi_2"
	noMeta.Data.Object.Metadata = nil
	assert.Equal(t, entity.WebhookFailed, uc.HandleStripe(ctx, noMeta))
}
