package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classifieds/pkg/logger"
	"classifieds/pkg/metrics"
	"classifieds/pkg/models"
	"classifieds/pkg/notifier"
	"classifieds/services/product/internal/repo/persistent"

	"gorm.io/gorm"
)

const ExpiryWarningWindow = 24 * time.Hour

type SweepResult struct {
	Expired    int   `json:"expired"`
	VipCleared int64 `json:"vip_cleared"`
	Notified   int   `json:"notified"`
}

type SweeperUseCase interface {
	ExpireOldProducts(ctx context.Context, now time.Time) (SweepResult, error)
	NotifyExpiringProducts(ctx context.Context, now time.Time) (int, error)
}

type sweeperUseCase struct {
	productRepo persistent.ProductRepository
	notifier    *notifier.Notifier
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewSweeperUseCase(productRepo persistent.ProductRepository, notifier *notifier.Notifier, logger *logger.Logger, m *metrics.Metrics) SweeperUseCase {
	return &sweeperUseCase{
		productRepo: productRepo,
		notifier:    notifier,
		logger:      logger,
		metrics:     m,
	}
}

// ExpireOldProducts moves every approved listing whose expiry has passed to
// EXPIRED and clears lapsed VIP placements. Each listing is handled in its
// own transaction; a failed listing is logged and the rest still run.
func (uc *sweeperUseCase) ExpireOldProducts(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	candidates, err := uc.productRepo.ListExpiredApproved(ctx, now)
	if err != nil {
		return result, err
	}

	var errs []error
	for _, candidate := range candidates {
		var notification models.Notification
		expired := false
		err := uc.productRepo.WithTx(ctx, func(tx persistent.TxRepository) error {
			product, err := tx.LockByID(candidate.ID)
			if err != nil {
				return err
			}
			if product.Status != models.StatusApproved || product.ExpiresAt == nil || product.ExpiresAt.After(now) {
				return nil
			}

			if err := tx.Update(product.ID, map[string]interface{}{"status": models.StatusExpired}); err != nil {
				return err
			}

			notification, err = recordNotification(uc.notifier, tx, product, models.NotificationProductExpired,
				fmt.Sprintf("Your product %q has expired", product.Title))
			if err != nil {
				return err
			}
			expired = true
			return nil
		})
		if err != nil {
			uc.logger.Error("[SWEEPER] Failed to expire product %s: %v", candidate.ID, err)
			errs = append(errs, err)
			continue
		}
		if expired {
			result.Expired++
			uc.notifier.Dispatch(ctx, notification)
		}
	}

	cleared, err := uc.productRepo.ClearExpiredVip(ctx, now)
	if err != nil {
		uc.logger.Error("[SWEEPER] Failed to clear expired VIP: %v", err)
		errs = append(errs, err)
	}
	result.VipCleared = cleared

	uc.observe("expire", result.Expired)
	uc.observe("vip_cleared", int(cleared))
	uc.logger.Info("[SWEEPER] Expired %d product(s), cleared VIP on %d", result.Expired, cleared)
	return result, errors.Join(errs...)
}

// NotifyExpiringProducts warns sellers whose approved listings expire within
// the next day. A listing is warned at most once per recipient.
func (uc *sweeperUseCase) NotifyExpiringProducts(ctx context.Context, now time.Time) (int, error) {
	until := now.Add(ExpiryWarningWindow)
	candidates, err := uc.productRepo.ListExpiring(ctx, now, until)
	if err != nil {
		return 0, err
	}

	notified := 0
	var errs []error
	for _, candidate := range candidates {
		var notification models.Notification
		sent := false
		err := uc.productRepo.WithTx(ctx, func(tx persistent.TxRepository) error {
			product, err := tx.LockByID(candidate.ID)
			if err != nil {
				return err
			}
			if product.Status != models.StatusApproved || product.ExpiresAt == nil ||
				!product.ExpiresAt.After(now) || product.ExpiresAt.After(until) {
				return nil
			}

			seller, err := tx.GetSeller(product.SellerID)
			if err != nil {
				return err
			}
			exists, err := uc.notifier.Exists(tx.DB(), models.NotificationProductExpiring, product.ID, seller.Email)
			if err != nil || exists {
				return err
			}

			notification, err = recordNotification(uc.notifier, tx, product, models.NotificationProductExpiring,
				fmt.Sprintf("Your product %q expires on %s", product.Title, product.ExpiresAt.Format("2006-01-02 15:04 MST")))
			if err != nil {
				return err
			}
			sent = true
			return nil
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// another sweeper recorded the warning first
			continue
		}
		if err != nil {
			uc.logger.Error("[SWEEPER] Failed to warn about product %s: %v", candidate.ID, err)
			errs = append(errs, err)
			continue
		}
		if sent {
			notified++
			uc.notifier.Dispatch(ctx, notification)
		}
	}

	uc.observe("notify_expiring", notified)
	uc.logger.Info("[SWEEPER] Sent %d expiry warning(s)", notified)
	return notified, errors.Join(errs...)
}

func (uc *sweeperUseCase) observe(job string, n int) {
	if uc.metrics == nil || n <= 0 {
		return
	}
	uc.metrics.SweeperItems.WithLabelValues(job).Add(float64(n))
}
