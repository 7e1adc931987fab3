package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classifieds/pkg/apperr"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/product/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	GetSeller(ctx context.Context, sellerID string) (*entity.Seller, error)
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, productID string) (*entity.Product, error)
	IncrementViews(ctx context.Context, productID string) error
	List(ctx context.Context, filter entity.ListFilter, page pagination.Params) ([]*entity.Product, int64, error)
	ListPending(ctx context.Context, page pagination.Params) ([]*entity.Product, int64, error)
	Delete(ctx context.Context, productID string) ([]entity.Photo, error)

	ListExpiredApproved(ctx context.Context, now time.Time) ([]*entity.Product, error)
	ListExpiring(ctx context.Context, now, until time.Time) ([]*entity.Product, error)
	ClearExpiredVip(ctx context.Context, now time.Time) (int64, error)

	// WithTx runs fn in one database transaction.
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error
}

// TxRepository is the set of operations available inside WithTx. DB
// exposes the transaction so the ledger and notifier can join it.
type TxRepository interface {
	DB() *gorm.DB
	LockByID(productID string) (*entity.Product, error)
	GetSeller(sellerID string) (*entity.Seller, error)
	Update(productID string, fields map[string]interface{}) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetSeller(ctx context.Context, sellerID string) (*entity.Seller, error) {
	return getSeller(r.db.WithContext(ctx), sellerID)
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	productModel := ToProductModel(product)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Seller").Create(productModel).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	created := ToProductEntity(productModel)
	created.Seller = product.Seller
	*product = *created
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, productID string) (*entity.Product, error) {
	var productModel models.Product
	err := withDetails(r.db.WithContext(ctx)).Where("products.id = ?", productID).First(&productModel).Error
	if err != nil {
		return nil, productError(productID, err)
	}
	return ToProductEntity(&productModel), nil
}

func (r *productRepository) IncrementViews(ctx context.Context, productID string) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment views: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	return nil
}

func (r *productRepository) List(ctx context.Context, filter entity.ListFilter, page pagination.Params) ([]*entity.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Search != "" {
		query = query.Where(containsExpr(r.db, "title")+" OR "+containsExpr(r.db, "description"), filter.Search, filter.Search)
	}

	return r.page(query.Session(&gorm.Session{}), page, func(q *gorm.DB) *gorm.DB {
		return q.Order("is_vip DESC").
			Order("published_at DESC NULLS LAST").
			Order("created_at DESC")
	})
}

func (r *productRepository) ListPending(ctx context.Context, page pagination.Params) ([]*entity.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("status = ?", models.StatusPending)

	return r.page(query.Session(&gorm.Session{}), page, func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at ASC")
	})
}

func (r *productRepository) page(query *gorm.DB, page pagination.Params, order func(*gorm.DB) *gorm.DB) ([]*entity.Product, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var productModels []models.Product
	if err := order(withDetails(query)).Limit(page.Size()).Offset(page.Offset()).Find(&productModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]*entity.Product, len(productModels))
	for i := range productModels {
		products[i] = ToProductEntity(&productModels[i])
	}
	return products, total, nil
}

func (r *productRepository) Delete(ctx context.Context, productID string) ([]entity.Photo, error) {
	var photos []models.Photo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Find(&photos).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", productID).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", productID).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	deleted := make([]entity.Photo, len(photos))
	for i, p := range photos {
		deleted[i] = entity.Photo{ID: p.ID, URL: p.URL, StorageKey: p.StorageKey, IsPrimary: p.IsPrimary, Position: p.Position}
	}
	return deleted, nil
}

func (r *productRepository) ListExpiredApproved(ctx context.Context, now time.Time) ([]*entity.Product, error) {
	var productModels []models.Product
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.StatusApproved, now).
		Order("expires_at ASC").
		Find(&productModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired products: %w", err)
	}
	return toEntities(productModels), nil
}

func (r *productRepository) ListExpiring(ctx context.Context, now, until time.Time) ([]*entity.Product, error) {
	var productModels []models.Product
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at > ? AND expires_at <= ?", models.StatusApproved, now, until).
		Order("expires_at ASC").
		Find(&productModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring products: %w", err)
	}
	return toEntities(productModels), nil
}

func (r *productRepository) ClearExpiredVip(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("is_vip = ? AND vip_until IS NOT NULL AND vip_until <= ?", true, now).
		Update("is_vip", false)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear expired VIP: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *productRepository) WithTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepository{tx: tx})
	})
}

type txRepository struct {
	tx *gorm.DB
}

func (r *txRepository) DB() *gorm.DB {
	return r.tx
}

func (r *txRepository) LockByID(productID string) (*entity.Product, error) {
	var productModel models.Product
	err := r.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&productModel).Error
	if err != nil {
		return nil, productError(productID, err)
	}
	return ToProductEntity(&productModel), nil
}

func (r *txRepository) GetSeller(sellerID string) (*entity.Seller, error) {
	return getSeller(r.tx, sellerID)
}

func (r *txRepository) Update(productID string, fields map[string]interface{}) error {
	res := r.tx.Model(&models.Product{}).Where("id = ?", productID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	return nil
}

func getSeller(db *gorm.DB, sellerID string) (*entity.Seller, error) {
	var user models.User
	if err := db.Where("id = ?", sellerID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("seller %s: %w", sellerID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load seller: %w", err)
	}
	return ToSellerEntity(&user), nil
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Seller")
}

// containsExpr is a case-sensitive substring match. LIKE is avoided because
// SQLite's LIKE ignores ASCII case and user input may contain wildcards.
func containsExpr(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "sqlite" {
		return fmt.Sprintf("instr(%s, ?) > 0", column)
	}
	return fmt.Sprintf("strpos(%s, ?) > 0", column)
}

func productError(productID string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	return fmt.Errorf("failed to load product %s: %w", productID, err)
}

func toEntities(productModels []models.Product) []*entity.Product {
	products := make([]*entity.Product, len(productModels))
	for i := range productModels {
		products[i] = ToProductEntity(&productModels[i])
	}
	return products
}
