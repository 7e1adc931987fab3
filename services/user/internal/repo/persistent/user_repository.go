package persistent

import (
	"context"
	"errors"
	"fmt"

	"classifieds/pkg/apperr"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/user/internal/entity"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context, page pagination.Params) ([]*entity.User, int64, error)
	// Update writes only the given columns and returns the fresh row.
	Update(ctx context.Context, id string, fields map[string]interface{}) (*entity.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	userModel := ToUserModel(user)
	if err := r.db.WithContext(ctx).Create(userModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user with this email %w", apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	*user = *ToUserEntity(userModel)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.first(ctx, "user "+id, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(ctx, "user "+email, "email = ?", email)
}

func (r *userRepository) first(ctx context.Context, label, query string, arg interface{}) (*entity.User, error) {
	var userModel models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&userModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", label, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load %s: %w", label, err)
	}
	return ToUserEntity(&userModel), nil
}

func (r *userRepository) List(ctx context.Context, page pagination.Params) ([]*entity.User, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.User{}).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var userModels []models.User
	err := db.Order("created_at DESC").Order("id").
		Offset(page.Offset()).Limit(page.Size()).
		Find(&userModels).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*entity.User, len(userModels))
	for i := range userModels {
		users[i] = ToUserEntity(&userModels[i])
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*entity.User, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}
