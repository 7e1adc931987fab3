package usecase

import (
	"context"
	"testing"
	"time"

	"classifieds/pkg/apperr"
	"classifieds/pkg/database"
	"classifieds/pkg/jwt"
	"classifieds/pkg/logger"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/user/internal/entity"
	"classifieds/services/user/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (UserUseCase, *gorm.DB, *jwt.Service) {
	t.Helper()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	jwtService := jwt.NewService("test-secret")
	return NewUserUseCase(persistent.NewUserRepository(db), jwtService, logger.New()), db, jwtService
}

func TestRegisterAndLogin(t *testing.T) {
	uc, _, jwtService := setup(t)
	ctx := context.Background()

	user, token, err := uc.Register(ctx, entity.Registration{
		Email:     "  Seller@Example.com ",
		Password:  "secret1",
		FirstName: "Awa",
		Role:      models.RoleSeller,
	})
	require.NoError(t, err)
	assert.Equal(t, "seller@example.com", user.Email)
	assert.Equal(t, models.RoleSeller, user.Role)
	assert.True(t, user.IsActive)
	assert.Zero(t, user.Credits)
	assert.NotEqual(t, "secret1", user.Password)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "SELLER", claims.Role)

	logged, token, err := uc.Login(ctx, "seller@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEmpty(t, token)

	_, _, err = uc.Login(ctx, "seller@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, _, err = uc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRegister_Rejections(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	_, _, err := uc.Register(ctx, entity.Registration{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, _, err = uc.Register(ctx, entity.Registration{Email: "A@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, _, err = uc.Register(ctx, entity.Registration{Email: "b@example.com", Password: "123"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, _, err = uc.Register(ctx, entity.Registration{Email: "c@example.com", Password: "secret1", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	user, _, err := uc.Register(ctx, entity.Registration{Email: "d@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = uc.SetActive(ctx, user.ID, false)
	require.NoError(t, err)

	_, _, err = uc.Login(ctx, "d@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestAdminUpdates(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	user, _, err := uc.Register(ctx, entity.Registration{Email: "e@example.com", Password: "secret1"})
	require.NoError(t, err)

	updated, err := uc.SetVip(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsVip)

	updated, err = uc.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.IsVip)

	updated, err = uc.SetRole(ctx, user.ID, "MODERATOR")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, updated.Role)

	_, err = uc.SetRole(ctx, user.ID, "moderator")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = uc.SetRole(ctx, user.ID, "ROOT")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err := uc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, got.Role)
}

func TestAdminUpdates_UnknownUser(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	missing := "11111111-1111-1111-1111-111111111111"

	_, err := uc.GetUser(ctx, missing)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = uc.SetVip(ctx, missing, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = uc.SetActive(ctx, missing, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = uc.SetRole(ctx, missing, "ADMIN")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListUsers_NewestFirst(t *testing.T) {
	uc, db, _ := setup(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, email := range []string{"old@example.com", "mid@example.com", "new@example.com"} {
		u := &models.User{Email: email, Password: "x", IsActive: true, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, db.Create(u).Error)
	}

	users, meta, err := uc.ListUsers(context.Background(), pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.Total)
	assert.Equal(t, 2, meta.TotalPages)
	require.Len(t, users, 2)
	assert.Equal(t, "new@example.com", users[0].Email)
	assert.Equal(t, "mid@example.com", users[1].Email)

	users, _, err = uc.ListUsers(context.Background(), pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "old@example.com", users[0].Email)
}
