package http

import (
	"net/http"

	"classifieds/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// Pointers so that an absent field is told apart from false.
type VipRequest struct {
	IsVip *bool `json:"is_vip" binding:"required"`
}

type StatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListUsers godoc
// @Summary      List users
// @Description  All accounts, newest first. Admin only.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200  {object}  UsersResponse
// @Failure      403  {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page := pagination.Parse(c.Query("page"), c.Query("limit"))

	users, meta, err := h.userUseCase.ListUsers(c.Request.Context(), page)
	if err != nil {
		h.fail(c, "list users", err)
		return
	}

	c.JSON(http.StatusOK, UsersResponse{Items: users, Pagination: meta})
}

// GetUser godoc
// @Summary      Get a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200  {object}  entity.User
// @Failure      404  {object}  map[string]string
// @Router       /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userUseCase.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// SetVip godoc
// @Summary      Set account VIP flag
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body VipRequest true "VIP flag"
// @Success      200  {object}  entity.User
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id}/vip [put]
func (h *UserHandler) SetVip(c *gin.Context) {
	var req VipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_vip must be a boolean"})
		return
	}

	user, err := h.userUseCase.SetVip(c.Request.Context(), c.Param("id"), *req.IsVip)
	if err != nil {
		h.fail(c, "update VIP status", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// SetStatus godoc
// @Summary      Activate or deactivate an account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body StatusRequest true "Active flag"
// @Success      200  {object}  entity.User
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id}/status [put]
func (h *UserHandler) SetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_active must be a boolean"})
		return
	}

	user, err := h.userUseCase.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		h.fail(c, "update user status", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// SetRole godoc
// @Summary      Change a user's role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body RoleRequest true "USER, SELLER, MODERATOR or ADMIN"
// @Success      200  {object}  entity.User
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id}/role [put]
func (h *UserHandler) SetRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userUseCase.SetRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		h.fail(c, "update user role", err)
		return
	}

	c.JSON(http.StatusOK, user)
}
