package http

import (
	"net/http"

	"classifieds/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type RejectRequest struct {
	Reason string `json:"reason"`
}

// ListPending godoc
// @Summary      Moderation queue
// @Description  Pending listings, oldest first
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200  {object}  ListResponse
// @Failure      403  {object}  map[string]string
// @Router       /products/moderation/pending [get]
func (h *ProductHandler) ListPending(c *gin.Context) {
	page := pagination.Parse(c.Query("page"), c.Query("limit"))

	products, meta, err := h.productUseCase.ListPending(c.Request.Context(), page)
	if err != nil {
		h.fail(c, "list pending products", err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: products, Pagination: meta})
}

// Approve godoc
// @Summary      Approve a listing
// @Description  Publishes a pending listing for 7 days and notifies the seller
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product ID"
// @Success      200  {object}  entity.Product
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /products/{id}/approve [post]
func (h *ProductHandler) Approve(c *gin.Context) {
	product, err := h.productUseCase.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "approve product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// Reject godoc
// @Summary      Reject a listing
// @Tags         moderation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product ID"
// @Param        request body RejectRequest false "Optional reason sent to the seller"
// @Success      200  {object}  entity.Product
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /products/{id}/reject [post]
func (h *ProductHandler) Reject(c *gin.Context) {
	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	product, err := h.productUseCase.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.fail(c, "reject product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}
