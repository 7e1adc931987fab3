package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"classifieds/pkg/apperr"
	"classifieds/pkg/logger"
	"classifieds/pkg/middleware"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/user/internal/entity"
	"classifieds/services/user/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockUserUseCase is a mock implementation of UserUseCase
type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) Register(ctx context.Context, reg entity.Registration) (*entity.User, string, error) {
	args := m.Called(reg)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*entity.User), args.String(1), args.Error(2)
}

func (m *MockUserUseCase) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	args := m.Called(email, password)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*entity.User), args.String(1), args.Error(2)
}

func (m *MockUserUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserUseCase) ListUsers(ctx context.Context, page pagination.Params) ([]*entity.User, pagination.Meta, error) {
	args := m.Called(page)
	if args.Get(0) == nil {
		return nil, pagination.Meta{}, args.Error(2)
	}
	return args.Get(0).([]*entity.User), args.Get(1).(pagination.Meta), args.Error(2)
}

func (m *MockUserUseCase) SetVip(ctx context.Context, userID string, isVip bool) (*entity.User, error) {
	args := m.Called(userID, isVip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserUseCase) SetActive(ctx context.Context, userID string, isActive bool) (*entity.User, error) {
	args := m.Called(userID, isActive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserUseCase) SetRole(ctx context.Context, userID, role string) (*entity.User, error) {
	args := m.Called(userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

var _ usecase.UserUseCase = (*MockUserUseCase)(nil)

func setupTestRouter(uc *MockUserUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewUserHandler(uc, logger.New())

	router := gin.New()
	router.POST("/auth/register", handler.Register)
	router.POST("/auth/login", handler.Login)

	users := router.Group("/users", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "me-1")
		c.Next()
	})
	users.GET("/me", handler.Me)
	users.GET("", handler.ListUsers)
	users.GET("/:id", handler.GetUser)
	users.PUT("/:id/vip", handler.SetVip)
	users.PUT("/:id/status", handler.SetStatus)
	users.PUT("/:id/role", handler.SetRole)
	return router
}

func send(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegister(t *testing.T) {
	uc := new(MockUserUseCase)
	router := setupTestRouter(uc)
	reg := entity.Registration{Email: "s@example.com", Password: "secret1", Role: models.RoleSeller}
	uc.On("Register", reg).Return(&entity.User{ID: "u-1", Email: reg.Email, Role: models.RoleSeller}, "tok", nil)

	w := send(router, http.MethodPost, "/auth/register", `{"email":"s@example.com","password":"secret1","role":"SELLER"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"tok"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = send(router, http.MethodPost, "/auth/register", `{"email":"not-an-email","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	uc.AssertNumberOfCalls(t, "Register", 1)
}

func TestRegister_Conflict(t *testing.T) {
	uc := new(MockUserUseCase)
	router := setupTestRouter(uc)
	uc.On("Register", mock.Anything).Return(nil, "", fmt.Errorf("user with this email %w", apperr.ErrConflict))

	w := send(router, http.MethodPost, "/auth/register", `{"email":"s@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin(t *testing.T) {
	uc := new(MockUserUseCase)
	router := setupTestRouter(uc)
	uc.On("Login", "s@example.com", "secret1").Return(&entity.User{ID: "u-1"}, "tok", nil)
	uc.On("Login", "s@example.com", "bad").Return(nil, "", fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized))
	uc.On("Login", "off@example.com", "secret1").Return(nil, "", fmt.Errorf("%w: account is deactivated", apperr.ErrForbidden))

	assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "/auth/login", `{"email":"s@example.com","password":"secret1"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, send(router, http.MethodPost, "/auth/login", `{"email":"s@example.com","password":"bad"}`).Code)
	assert.Equal(t, http.StatusForbidden, send(router, http.MethodPost, "/auth/login", `{"email":"off@example.com","password":"secret1"}`).Code)
}

func TestMe(t *testing.T) {
	uc := new(MockUserUseCase)
	router := setupTestRouter(uc)
	uc.On("GetUser", "me-1").Return(&entity.User{ID: "me-1", Credits: 35, Role: models.RoleSeller}, nil)

	w := send(router, http.MethodGet, "/users/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"credits":35`)
}

func TestListUsers(t *testing.T) {
	uc := new(MockUserUseCase)
	router := setupTestRouter(uc)
	uc.On("ListUsers", pagination.Params{Page: 1, Limit: 20}).
		Return([]*entity.User{{ID: "u-2"}, {ID: "u-1"}}, pagination.Meta{Total: 2, Page: 1, Limit: 20, TotalPages: 1}, nil)

	w := send(router, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":2`)
}

func TestGetUser_NotFound(t *testing.T) {
	uc := new(MockUserUseCase)
	router := setupTestRouter(uc)
	uc.On("GetUser", "ghost").Return(nil, fmt.Errorf("user ghost: %w", apperr.ErrNotFound))

	w := send(router, http.MethodGet, "/users/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetVip(t *testing.T) {
	uc := new(MockUserUseCase)
	router := setupTestRouter(uc)
	uc.On("SetVip", "u-1", false).Return(&entity.User{ID: "u-1", IsVip: false}, nil)

	w := send(router, http.MethodPut, "/users/u-1/vip", `{"is_vip":false}`)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, body := range []string{`{}`, `{"is_vip":"yes"}`, `{"is_vip":1}`, `not json`} {
		w = send(router, http.MethodPut, "/users/u-1/vip", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	uc.AssertNumberOfCalls(t, "SetVip", 1)
}

func TestSetStatus(t *testing.T) {
	uc := new(MockUserUseCase)
	router := setupTestRouter(uc)
	uc.On("SetActive", "u-1", true).Return(&entity.User{ID: "u-1", IsActive: true}, nil)
	uc.On("SetActive", "ghost", true).Return(nil, fmt.Errorf("user ghost: %w", apperr.ErrNotFound))

	assert.Equal(t, http.StatusOK, send(router, http.MethodPut, "/users/u-1/status", `{"is_active":true}`).Code)
	assert.Equal(t, http.StatusNotFound, send(router, http.MethodPut, "/users/ghost/status", `{"is_active":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(router, http.MethodPut, "/users/u-1/status", `{"is_active":null}`).Code)
}

func TestSetRole(t *testing.T) {
	uc := new(MockUserUseCase)
	router := setupTestRouter(uc)
	uc.On("SetRole", "u-1", "ADMIN").Return(&entity.User{ID: "u-1", Role: models.RoleAdmin}, nil)
	uc.On("SetRole", "u-1", "ROOT").Return(nil, fmt.Errorf("%w: invalid role \"ROOT\"", apperr.ErrInvalidInput))

	w := send(router, http.MethodPut, "/users/u-1/role", `{"role":"ADMIN"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"ADMIN"`)

	assert.Equal(t, http.StatusBadRequest, send(router, http.MethodPut, "/users/u-1/role", `{"role":"ROOT"}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(router, http.MethodPut, "/users/u-1/role", `{}`).Code)
}
