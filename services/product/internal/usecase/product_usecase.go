package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"classifieds/pkg/apperr"
	"classifieds/pkg/ledger"
	"classifieds/pkg/logger"
	"classifieds/pkg/models"
	"classifieds/pkg/notifier"
	"classifieds/pkg/pagination"
	"classifieds/services/product/internal/entity"
	"classifieds/services/product/internal/repo/persistent"

	"github.com/google/uuid"
)

const (
	ListingDuration    = 7 * 24 * time.Hour
	VipCost            = 10
	VipDuration        = 30 * 24 * time.Hour
	ExtensionDailyCost = 5
	MinExtensionDays   = 1
	MaxExtensionDays   = 365
	maxPhotos          = 10
	maxTitleLength     = 200
)

type CreateInput struct {
	Title       string
	Description string
	Category    string
	Price       *float64
}

type PhotoFile struct {
	Name        string
	ContentType string
	Body        io.ReadSeeker
}

// PhotoStorage is the object store holding listing photos.
type PhotoStorage interface {
	UploadFile(ctx context.Context, key string, body io.ReadSeeker, contentType string) (string, error)
	DeleteFiles(ctx context.Context, keys []string) ([]string, error)
}

type ProductUseCase interface {
	Create(ctx context.Context, sellerID string, input CreateInput, photos []PhotoFile) (*entity.Product, error)
	Get(ctx context.Context, productID string) (*entity.Product, error)
	List(ctx context.Context, filter entity.ListFilter, page pagination.Params) ([]*entity.Product, pagination.Meta, error)
	Delete(ctx context.Context, productID string) error
	ListPending(ctx context.Context, page pagination.Params) ([]*entity.Product, pagination.Meta, error)
	Approve(ctx context.Context, productID string) (*entity.Product, error)
	Reject(ctx context.Context, productID, reason string) (*entity.Product, error)
	UpgradeToVip(ctx context.Context, productID, userID string) (*entity.Product, error)
	ExtendDuration(ctx context.Context, productID, userID string, days int) (*entity.Product, error)
}

type productUseCase struct {
	productRepo persistent.ProductRepository
	ledger      *ledger.Ledger
	notifier    *notifier.Notifier
	storage     PhotoStorage
	logger      *logger.Logger
	now         func() time.Time
}

func NewProductUseCase(productRepo persistent.ProductRepository, ledger *ledger.Ledger, notifier *notifier.Notifier, storage PhotoStorage, logger *logger.Logger) ProductUseCase {
	return &productUseCase{
		productRepo: productRepo,
		ledger:      ledger,
		notifier:    notifier,
		storage:     storage,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *productUseCase) Create(ctx context.Context, sellerID string, input CreateInput, photos []PhotoFile) (*entity.Product, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	if err := validateCreate(input, photos); err != nil {
		return nil, err
	}

	seller, err := uc.productRepo.GetSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if !seller.IsActive {
		return nil, fmt.Errorf("%w: seller account is inactive", apperr.ErrForbidden)
	}

	uploaded := make([]entity.Photo, 0, len(photos))
	for i, photo := range photos {
		key := fmt.Sprintf("products/%s/%s%s", sellerID, uuid.New().String(), strings.ToLower(filepath.Ext(photo.Name)))
		url, err := uc.storage.UploadFile(ctx, key, photo.Body, contentTypeOf(photo))
		if err != nil {
			uc.logger.Error("Failed to upload photo %s: %v", photo.Name, err)
			uc.removePhotos(ctx, uploaded)
			return nil, fmt.Errorf("failed to upload photo: %w", err)
		}
		uploaded = append(uploaded, entity.Photo{
			URL:        url,
			StorageKey: key,
			IsPrimary:  i == 0,
			Position:   i,
		})
	}

	product := &entity.Product{
		SellerID:    sellerID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Status:      models.StatusPending,
		IsVip:       seller.IsVip,
		Seller:      seller,
		Photos:      uploaded,
	}
	if err := uc.productRepo.Create(ctx, product); err != nil {
		uc.logger.Error("Failed to create product: %v", err)
		uc.removePhotos(ctx, uploaded)
		return nil, err
	}

	uc.logger.Info("Product %s submitted for moderation by seller %s", product.ID, sellerID)
	return product, nil
}

func validateCreate(input CreateInput, photos []PhotoFile) error {
	switch {
	case input.Title == "":
		return fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
	case len(input.Title) > maxTitleLength:
		return fmt.Errorf("%w: title is longer than %d characters", apperr.ErrInvalidInput, maxTitleLength)
	case input.Description == "":
		return fmt.Errorf("%w: description is required", apperr.ErrInvalidInput)
	case input.Category == "":
		return fmt.Errorf("%w: category is required", apperr.ErrInvalidInput)
	case input.Price != nil && *input.Price < 0:
		return fmt.Errorf("%w: price must not be negative", apperr.ErrInvalidInput)
	case len(photos) == 0:
		return fmt.Errorf("%w: at least one photo is required", apperr.ErrInvalidInput)
	case len(photos) > maxPhotos:
		return fmt.Errorf("%w: at most %d photos are allowed", apperr.ErrInvalidInput, maxPhotos)
	}
	return nil
}

func contentTypeOf(photo PhotoFile) string {
	if photo.ContentType != "" {
		return photo.ContentType
	}
	switch strings.ToLower(filepath.Ext(photo.Name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	return "image/jpeg"
}

func (uc *productUseCase) Get(ctx context.Context, productID string) (*entity.Product, error) {
	if err := uc.productRepo.IncrementViews(ctx, productID); err != nil {
		return nil, err
	}
	return uc.productRepo.GetByID(ctx, productID)
}

func (uc *productUseCase) List(ctx context.Context, filter entity.ListFilter, page pagination.Params) ([]*entity.Product, pagination.Meta, error) {
	products, total, err := uc.productRepo.List(ctx, filter, page)
	if err != nil {
		uc.logger.Error("Failed to list products: %v", err)
		return nil, pagination.Meta{}, err
	}
	return products, pagination.NewMeta(total, page), nil
}

// Delete removes the listing and its photo records, then the stored photo
// objects. Storage failures are logged and not returned.
func (uc *productUseCase) Delete(ctx context.Context, productID string) error {
	photos, err := uc.productRepo.Delete(ctx, productID)
	if err != nil {
		return err
	}

	uc.removePhotos(ctx, photos)
	uc.logger.Info("Product %s deleted with %d photo(s)", productID, len(photos))
	return nil
}

func (uc *productUseCase) removePhotos(ctx context.Context, photos []entity.Photo) {
	if uc.storage == nil || len(photos) == 0 {
		return
	}

	keys := make([]string, 0, len(photos))
	for _, p := range photos {
		if p.StorageKey != "" {
			keys = append(keys, p.StorageKey)
		}
	}
	if len(keys) == 0 {
		return
	}

	if failed, err := uc.storage.DeleteFiles(ctx, keys); err != nil {
		uc.logger.Warn("Failed to delete %d photo object(s) %v: %v", len(failed), failed, err)
	}
}

func (uc *productUseCase) ListPending(ctx context.Context, page pagination.Params) ([]*entity.Product, pagination.Meta, error) {
	products, total, err := uc.productRepo.ListPending(ctx, page)
	if err != nil {
		uc.logger.Error("Failed to list pending products: %v", err)
		return nil, pagination.Meta{}, err
	}
	return products, pagination.NewMeta(total, page), nil
}

func (uc *productUseCase) Approve(ctx context.Context, productID string) (*entity.Product, error) {
	var notification models.Notification
	err := uc.productRepo.WithTx(ctx, func(tx persistent.TxRepository) error {
		product, err := tx.LockByID(productID)
		if err != nil {
			return err
		}
		if product.Status != models.StatusPending {
			return fmt.Errorf("%w: cannot approve a %s product", apperr.ErrInvalidTransition, product.Status)
		}

		now := uc.now()
		if err := tx.Update(productID, map[string]interface{}{
			"status":       models.StatusApproved,
			"published_at": now,
			"expires_at":   now.Add(ListingDuration),
			"is_vip":       false,
		}); err != nil {
			return err
		}

		notification, err = recordNotification(uc.notifier, tx, product, models.NotificationProductApproved,
			fmt.Sprintf("Your product %q has been approved and is now online", product.Title))
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Dispatch(ctx, notification)
	uc.logger.Info("Product %s approved", productID)
	return uc.productRepo.GetByID(ctx, productID)
}

func (uc *productUseCase) Reject(ctx context.Context, productID, reason string) (*entity.Product, error) {
	reason = strings.TrimSpace(reason)

	var notification models.Notification
	err := uc.productRepo.WithTx(ctx, func(tx persistent.TxRepository) error {
		product, err := tx.LockByID(productID)
		if err != nil {
			return err
		}
		if product.Status != models.StatusPending {
			return fmt.Errorf("%w: cannot reject a %s product", apperr.ErrInvalidTransition, product.Status)
		}

		if err := tx.Update(productID, map[string]interface{}{"status": models.StatusRejected}); err != nil {
			return err
		}

		message := fmt.Sprintf("Your product %q has been rejected", product.Title)
		if reason != "" {
			message += ": " + reason
		}
		notification, err = recordNotification(uc.notifier, tx, product, models.NotificationProductRejected, message)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Dispatch(ctx, notification)
	uc.logger.Info("Product %s rejected", productID)
	return uc.productRepo.GetByID(ctx, productID)
}

func (uc *productUseCase) UpgradeToVip(ctx context.Context, productID, userID string) (*entity.Product, error) {
	err := uc.productRepo.WithTx(ctx, func(tx persistent.TxRepository) error {
		product, err := uc.lockOwnedApproved(tx, productID, userID)
		if err != nil {
			return err
		}

		now := uc.now()
		if product.HasActiveVip(now) {
			return apperr.ErrAlreadyVip
		}

		if _, err := uc.ledger.DeductTx(tx.DB(), ledger.Debit{
			UserID:    userID,
			Amount:    VipCost,
			Reason:    fmt.Sprintf("VIP upgrade for %q", product.Title),
			ProductID: &product.ID,
			Type:      models.TransactionSpendVip,
		}); err != nil {
			return err
		}

		return tx.Update(productID, map[string]interface{}{
			"is_vip":    true,
			"vip_until": now.Add(VipDuration),
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Product %s upgraded to VIP by %s", productID, userID)
	return uc.productRepo.GetByID(ctx, productID)
}

func (uc *productUseCase) ExtendDuration(ctx context.Context, productID, userID string, days int) (*entity.Product, error) {
	if days < MinExtensionDays || days > MaxExtensionDays {
		return nil, fmt.Errorf("%w: days must be between %d and %d", apperr.ErrInvalidInput, MinExtensionDays, MaxExtensionDays)
	}

	err := uc.productRepo.WithTx(ctx, func(tx persistent.TxRepository) error {
		product, err := uc.lockOwnedApproved(tx, productID, userID)
		if err != nil {
			return err
		}

		if _, err := uc.ledger.DeductTx(tx.DB(), ledger.Debit{
			UserID:    userID,
			Amount:    days * ExtensionDailyCost,
			Reason:    fmt.Sprintf("Extension of %q by %d day(s)", product.Title, days),
			ProductID: &product.ID,
			Type:      models.TransactionSpendExtension,
		}); err != nil {
			return err
		}

		base := uc.now()
		if product.ExpiresAt != nil && product.ExpiresAt.After(base) {
			base = *product.ExpiresAt
		}
		return tx.Update(productID, map[string]interface{}{
			"expires_at": base.Add(time.Duration(days) * 24 * time.Hour),
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Product %s extended by %d day(s) by %s", productID, days, userID)
	return uc.productRepo.GetByID(ctx, productID)
}

func (uc *productUseCase) lockOwnedApproved(tx persistent.TxRepository, productID, userID string) (*entity.Product, error) {
	product, err := tx.LockByID(productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != userID {
		return nil, fmt.Errorf("%w: only the seller can modify this product", apperr.ErrForbidden)
	}
	if product.Status != models.StatusApproved {
		return nil, fmt.Errorf("%w: product is %s", apperr.ErrInvalidState, product.Status)
	}

	seller, err := tx.GetSeller(userID)
	if err != nil {
		return nil, err
	}
	if !seller.IsActive {
		return nil, fmt.Errorf("%w: seller account is inactive", apperr.ErrForbidden)
	}
	return product, nil
}

// recordNotification stores a notification for the listing's seller inside tx.
func recordNotification(n *notifier.Notifier, tx persistent.TxRepository, product *entity.Product, notificationType models.NotificationType, message string) (models.Notification, error) {
	seller, err := tx.GetSeller(product.SellerID)
	if err != nil {
		return models.Notification{}, err
	}

	productID := product.ID
	notification := models.Notification{
		Type:           notificationType,
		Message:        message,
		RecipientEmail: seller.Email,
		UserID:         seller.ID,
		ProductID:      &productID,
	}
	if err := n.Record(tx.DB(), &notification); err != nil {
		return models.Notification{}, err
	}
	return notification, nil
}
