package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"classifieds/pkg/apperr"
	"classifieds/pkg/logger"
	"classifieds/pkg/metrics"
	"classifieds/pkg/pagination"
	"classifieds/services/credits/internal/entity"
	"classifieds/services/credits/internal/repo/cache"
	"classifieds/services/credits/internal/repo/persistent"
)

const (
	ProviderPaytech = "paytech"
	ProviderStripe  = "stripe"

	paytechSuccess         = "SUCCESS"
	stripePaymentSucceeded = "payment_intent.succeeded"
)

type CreditsUseCase interface {
	GetBalance(ctx context.Context, userID string) (int, error)
	BuyPackage(ctx context.Context, userID, pkg string) (int, error)
	PayWithOperator(ctx context.Context, userID string, payment entity.OperatorPayment) (int, error)
	ListTransactions(ctx context.Context, userID string, page pagination.Params) ([]*entity.Transaction, pagination.Meta, error)
	HandlePaytech(ctx context.Context, event entity.PaytechEvent) entity.WebhookOutcome
	HandleStripe(ctx context.Context, event entity.StripeEvent) entity.WebhookOutcome
}

type creditsUseCase struct {
	creditsRepo persistent.CreditsRepository
	replayGuard cache.ReplayGuard
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewCreditsUseCase(creditsRepo persistent.CreditsRepository, replayGuard cache.ReplayGuard, logger *logger.Logger, m *metrics.Metrics) CreditsUseCase {
	return &creditsUseCase{
		creditsRepo: creditsRepo,
		replayGuard: replayGuard,
		logger:      logger,
		metrics:     m,
	}
}

func (uc *creditsUseCase) GetBalance(ctx context.Context, userID string) (int, error) {
	return uc.creditsRepo.GetBalance(ctx, userID)
}

// BuyPackage credits one of the fixed packages and returns the new balance.
func (uc *creditsUseCase) BuyPackage(ctx context.Context, userID, pkg string) (int, error) {
	amount, ok := entity.Packages[pkg]
	if !ok {
		return 0, fmt.Errorf("%w: Invalid package", apperr.ErrInvalidInput)
	}

	txn, err := uc.creditsRepo.AddCredits(ctx, userID, amount, "wallet", fmt.Sprintf("Purchase of %d credits (test mode)", amount))
	if err != nil {
		return 0, err
	}
	return txn.BalanceAfter, nil
}

// PayWithOperator credits a mobile operator payment. The operator call
// itself is simulated and always succeeds.
func (uc *creditsUseCase) PayWithOperator(ctx context.Context, userID string, payment entity.OperatorPayment) (int, error) {
	payment.Phone = strings.TrimSpace(payment.Phone)
	payment.Operator = strings.TrimSpace(payment.Operator)
	if payment.Phone == "" || payment.Operator == "" || payment.Amount == 0 {
		return 0, fmt.Errorf("%w: Phone, amount, and operator are required", apperr.ErrInvalidInput)
	}
	if payment.Amount < 0 {
		return 0, apperr.ErrInvalidAmount
	}

	txn, err := uc.creditsRepo.AddCredits(ctx, userID, payment.Amount, "operator-"+payment.Operator, "")
	if err != nil {
		return 0, err
	}
	uc.logger.Info("Operator payment of %d credits via %s for user %s", payment.Amount, payment.Operator, userID)
	return txn.BalanceAfter, nil
}

func (uc *creditsUseCase) ListTransactions(ctx context.Context, userID string, page pagination.Params) ([]*entity.Transaction, pagination.Meta, error) {
	transactions, total, err := uc.creditsRepo.ListTransactions(ctx, userID, page)
	if err != nil {
		uc.logger.Error("Failed to get transactions: %v", err)
		return nil, pagination.Meta{}, err
	}
	return transactions, pagination.NewMeta(total, page), nil
}

func (uc *creditsUseCase) HandlePaytech(ctx context.Context, event entity.PaytechEvent) entity.WebhookOutcome {
	if event.Status != paytechSuccess || event.UserID == "" || event.Amount == "" {
		return uc.finish(ProviderPaytech, event.TransactionID, entity.WebhookIgnored, nil)
	}

	amount, err := strconv.Atoi(string(event.Amount))
	if err != nil || amount <= 0 {
		return uc.finish(ProviderPaytech, event.TransactionID, entity.WebhookFailed,
			fmt.Errorf("unusable amount %q", event.Amount))
	}

	return uc.credit(ctx, ProviderPaytech, event.TransactionID, event.UserID, amount)
}

// HandleStripe credits payment_intent.succeeded events. The user and the
// number of credits are read from the payment intent metadata.
func (uc *creditsUseCase) HandleStripe(ctx context.Context, event entity.StripeEvent) entity.WebhookOutcome {
	if event.Type != stripePaymentSucceeded {
		return uc.finish(ProviderStripe, event.ID, entity.WebhookIgnored, nil)
	}

	metadata := event.Data.Object.Metadata
	userID := metadata["userId"]
	amount, err := strconv.Atoi(metadata["credits"])
	if userID == "" || err != nil || amount <= 0 {
		return uc.finish(ProviderStripe, event.ID, entity.WebhookFailed,
			fmt.Errorf("payment intent %s has no usable userId/credits metadata", event.Data.Object.ID))
	}

	id := event.Data.Object.ID
	if id == "" {
		id = event.ID
	}
	return uc.credit(ctx, ProviderStripe, id, userID, amount)
}

func (uc *creditsUseCase) credit(ctx context.Context, provider, id, userID string, amount int) entity.WebhookOutcome {
	first, err := uc.replayGuard.Claim(ctx, provider, id)
	if err != nil {
		uc.logger.Warn("[WEBHOOK] Replay guard unavailable for %s %s: %v", provider, id, err)
	} else if !first {
		return uc.finish(provider, id, entity.WebhookDuplicate, nil)
	}

	if _, err := uc.creditsRepo.AddCredits(ctx, userID, amount, provider, ""); err != nil {
		if ferr := uc.replayGuard.Forget(ctx, provider, id); ferr != nil {
			uc.logger.Warn("[WEBHOOK] Failed to release claim for %s %s: %v", provider, id, ferr)
		}
		return uc.finish(provider, id, entity.WebhookFailed,
			fmt.Errorf("crediting %d to user %s: %w", amount, userID, err))
	}

	uc.logger.Info("[WEBHOOK] Credits added via %s: %d for user %s", provider, amount, userID)
	return uc.finish(provider, id, entity.WebhookCredited, nil)
}

func (uc *creditsUseCase) finish(provider, id string, outcome entity.WebhookOutcome, err error) entity.WebhookOutcome {
	if err != nil {
		// left for manual reconciliation
		uc.logger.Error("[WEBHOOK] %s delivery %s not credited: %v", provider, id, err)
	}
	if uc.metrics != nil {
		uc.metrics.WebhookEvents.WithLabelValues(provider, string(outcome)).Inc()
	}
	return outcome
}
