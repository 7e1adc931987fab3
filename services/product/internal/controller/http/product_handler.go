package http

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"classifieds/pkg/apperr"
	"classifieds/pkg/logger"
	"classifieds/pkg/middleware"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/product/internal/entity"
	"classifieds/services/product/internal/usecase"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	productUseCase usecase.ProductUseCase
	logger         *logger.Logger
}

func NewProductHandler(productUseCase usecase.ProductUseCase, logger *logger.Logger) *ProductHandler {
	return &ProductHandler{
		productUseCase: productUseCase,
		logger:         logger,
	}
}

type ListResponse struct {
	Items      []*entity.Product `json:"items"`
	Pagination pagination.Meta   `json:"pagination"`
}

type CreateProductRequest struct {
	Title       string `form:"title" binding:"required"`
	Description string `form:"description" binding:"required"`
	Category    string `form:"category" binding:"required"`
	Price       string `form:"price"`
}

type ExtendRequest struct {
	Days int `json:"days" binding:"required"`
}

// CreateProduct godoc
// @Summary      Create a listing
// @Description  Create a listing with one or more photos. The listing starts PENDING and waits for moderation. The first photo becomes the primary one.
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        title formData string true "Title"
// @Param        description formData string true "Description"
// @Param        category formData string true "Category"
// @Param        price formData number false "Price"
// @Param        photos formData file true "Photo files (jpg/png/webp), multiple allowed"
// @Success      201  {object}  entity.Product
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	sellerID := c.GetString(middleware.ContextUserID)

	var req CreateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := usecase.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Price != "" {
		price, err := strconv.ParseFloat(req.Price, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
			return
		}
		input.Price = &price
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form"})
		return
	}
	headers := make([]*multipart.FileHeader, 0, len(form.File["photos"])+len(form.File["photos[]"]))
	headers = append(headers, form.File["photos"]...)
	headers = append(headers, form.File["photos[]"]...)
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one photo is required"})
		return
	}

	photos := make([]usecase.PhotoFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			closeAll(photos)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read photo " + header.Filename})
			return
		}
		photos = append(photos, usecase.PhotoFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		})
	}
	defer closeAll(photos)

	product, err := h.productUseCase.Create(c.Request.Context(), sellerID, input, photos)
	if err != nil {
		h.fail(c, "create product", err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func closeAll(photos []usecase.PhotoFile) {
	for _, p := range photos {
		if f, ok := p.Body.(multipart.File); ok {
			f.Close()
		}
	}
}

// GetProduct godoc
// @Summary      Get listing by ID
// @Description  Get listing details. Every call increments the view counter.
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200  {object}  entity.Product
// @Failure      404  {object}  map[string]string
// @Router       /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productUseCase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListProducts godoc
// @Summary      List listings
// @Description  VIP listings first, then newest published. Without status and sellerId only approved listings are returned. Search is a case-sensitive match on title or description.
// @Tags         products
// @Produce      json
// @Param        status query string false "Status filter" Enums(PENDING, APPROVED, REJECTED, EXPIRED)
// @Param        sellerId query string false "Seller ID"
// @Param        search query string false "Text contained in title or description"
// @Param        page query int false "Page" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200  {object}  ListResponse
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := entity.ListFilter{
		SellerID: c.Query("sellerId"),
		Search:   c.Query("search"),
	}

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseProductStatus(strings.ToUpper(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = status
	} else if filter.SellerID == "" {
		filter.Status = models.StatusApproved
	}

	page := pagination.Parse(c.Query("page"), c.Query("limit"))
	products, meta, err := h.productUseCase.List(c.Request.Context(), filter, page)
	if err != nil {
		h.fail(c, "list products", err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: products, Pagination: meta})
}

// UpgradeToVip godoc
// @Summary      Upgrade a listing to VIP
// @Description  Charges 10 credits and pins the listing for 30 days. Only the seller can upgrade an approved listing.
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product ID"
// @Success      200  {object}  entity.Product
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /products/{id}/upgrade-vip [post]
func (h *ProductHandler) UpgradeToVip(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	product, err := h.productUseCase.UpgradeToVip(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.fail(c, "upgrade product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// ExtendDuration godoc
// @Summary      Extend a listing
// @Description  Charges 5 credits per day (1 to 365 days) and pushes the expiry date forward.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product ID"
// @Param        request body ExtendRequest true "Days to add"
// @Success      200  {object}  entity.Product
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /products/{id}/extend [post]
func (h *ProductHandler) ExtendDuration(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.productUseCase.ExtendDuration(c.Request.Context(), c.Param("id"), userID, req.Days)
	if err != nil {
		h.fail(c, "extend product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct godoc
// @Summary      Delete a listing
// @Description  Admin only. Removes the listing, its photo records and the stored photo files.
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productUseCase.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete product", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

func (h *ProductHandler) fail(c *gin.Context, action string, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Failed to %s: %v", action, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
