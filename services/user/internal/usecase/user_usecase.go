package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"classifieds/pkg/apperr"
	"classifieds/pkg/jwt"
	"classifieds/pkg/logger"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/user/internal/entity"
	"classifieds/services/user/internal/repo/persistent"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)

type UserUseCase interface {
	Register(ctx context.Context, reg entity.Registration) (*entity.User, string, error)
	Login(ctx context.Context, email, password string) (*entity.User, string, error)
	GetUser(ctx context.Context, userID string) (*entity.User, error)
	ListUsers(ctx context.Context, page pagination.Params) ([]*entity.User, pagination.Meta, error)
	SetVip(ctx context.Context, userID string, isVip bool) (*entity.User, error)
	SetActive(ctx context.Context, userID string, isActive bool) (*entity.User, error)
	SetRole(ctx context.Context, userID, role string) (*entity.User, error)
}

type userUseCase struct {
	userRepo   persistent.UserRepository
	jwtService *jwt.Service
	logger     *logger.Logger
}

func NewUserUseCase(userRepo persistent.UserRepository, jwtService *jwt.Service, logger *logger.Logger) UserUseCase {
	return &userUseCase{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Register creates an active account. Self-registration may only pick the
// USER or SELLER role.
func (uc *userUseCase) Register(ctx context.Context, reg entity.Registration) (*entity.User, string, error) {
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	if reg.Email == "" || len(reg.Password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: email and a password of at least %d characters are required", apperr.ErrInvalidInput, minPasswordLength)
	}
	if reg.Role == "" {
		reg.Role = models.RoleUser
	}
	if reg.Role != models.RoleUser && reg.Role != models.RoleSeller {
		return nil, "", fmt.Errorf("%w: role %q cannot be self-assigned", apperr.ErrInvalidInput, reg.Role)
	}

	if _, err := uc.userRepo.GetByEmail(ctx, reg.Email); err == nil {
		return nil, "", fmt.Errorf("user with this email %w", apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		uc.logger.Error("Failed to hash password: %v", err)
		return nil, "", fmt.Errorf("failed to process registration")
	}

	user := &entity.User{
		Email:     reg.Email,
		Password:  string(hashedPassword),
		FirstName: strings.TrimSpace(reg.FirstName),
		LastName:  strings.TrimSpace(reg.LastName),
		Phone:     strings.TrimSpace(reg.Phone),
		Role:      reg.Role,
		IsActive:  true,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := uc.jwtService.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", fmt.Errorf("failed to generate token")
	}

	uc.logger.Info("Registered user %s as %s", user.ID, user.Role)
	return user, token, nil
}

func (uc *userUseCase) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	user, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, "", errInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", errInvalidCredentials
	}

	if !user.IsActive {
		return nil, "", fmt.Errorf("%w: account is deactivated", apperr.ErrForbidden)
	}

	token, err := uc.jwtService.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", fmt.Errorf("failed to generate token")
	}

	return user, token, nil
}

func (uc *userUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *userUseCase) ListUsers(ctx context.Context, page pagination.Params) ([]*entity.User, pagination.Meta, error) {
	users, total, err := uc.userRepo.List(ctx, page)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return users, pagination.NewMeta(total, page), nil
}

func (uc *userUseCase) SetVip(ctx context.Context, userID string, isVip bool) (*entity.User, error) {
	user, err := uc.userRepo.Update(ctx, userID, map[string]interface{}{"is_vip": isVip})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("User %s VIP status set to %t", userID, isVip)
	return user, nil
}

func (uc *userUseCase) SetActive(ctx context.Context, userID string, isActive bool) (*entity.User, error) {
	user, err := uc.userRepo.Update(ctx, userID, map[string]interface{}{"is_active": isActive})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("User %s active status set to %t", userID, isActive)
	return user, nil
}

func (uc *userUseCase) SetRole(ctx context.Context, userID, role string) (*entity.User, error) {
	parsed, err := models.ParseUserRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}

	user, err := uc.userRepo.Update(ctx, userID, map[string]interface{}{"role": string(parsed)})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("User %s role set to %s", userID, parsed)
	return user, nil
}
