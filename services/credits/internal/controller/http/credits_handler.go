package http

import (
	"net/http"

	"classifieds/pkg/apperr"
	"classifieds/pkg/logger"
	"classifieds/pkg/middleware"
	"classifieds/pkg/pagination"
	"classifieds/services/credits/internal/entity"
	"classifieds/services/credits/internal/usecase"

	"github.com/gin-gonic/gin"
)

type CreditsHandler struct {
	creditsUseCase usecase.CreditsUseCase
	webhookSecret  string
	logger         *logger.Logger
}

func NewCreditsHandler(creditsUseCase usecase.CreditsUseCase, webhookSecret string, logger *logger.Logger) *CreditsHandler {
	return &CreditsHandler{
		creditsUseCase: creditsUseCase,
		webhookSecret:  webhookSecret,
		logger:         logger,
	}
}

type BuyRequest struct {
	Package string `json:"package" binding:"required"`
}

type OperatorPaymentRequest struct {
	Phone    string `json:"phone"`
	Amount   int    `json:"amount"`
	Operator string `json:"operator"`
}

type CreditsResponse struct {
	Message string `json:"message"`
	Credits int    `json:"credits"`
}

type TransactionsResponse struct {
	Items      []*entity.Transaction `json:"items"`
	Pagination pagination.Meta       `json:"pagination"`
}

// GetBalance godoc
// @Summary      Get credit balance
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int
// @Failure      404  {object}  map[string]string
// @Router       /credits/balance [get]
func (h *CreditsHandler) GetBalance(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	balance, err := h.creditsUseCase.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "get balance", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// BuyCredits godoc
// @Summary      Buy a credit package
// @Description  Test-mode purchase of one of the fixed packages: 10, 15 or 25 credits
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BuyRequest true "Package"
// @Success      200  {object}  CreditsResponse
// @Failure      400  {object}  map[string]string
// @Router       /credits/buy [post]
func (h *CreditsHandler) BuyCredits(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid package"})
		return
	}

	balance, err := h.creditsUseCase.BuyPackage(c.Request.Context(), userID, req.Package)
	if err != nil {
		h.fail(c, "buy credits", err)
		return
	}

	c.JSON(http.StatusOK, CreditsResponse{Message: "Credits purchased successfully in test mode", Credits: balance})
}

// GetTransactions godoc
// @Summary      Credit history
// @Description  The caller's ledger entries, newest first
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200  {object}  TransactionsResponse
// @Router       /credits/transactions [get]
func (h *CreditsHandler) GetTransactions(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	page := pagination.Parse(c.Query("page"), c.Query("limit"))

	transactions, meta, err := h.creditsUseCase.ListTransactions(c.Request.Context(), userID, page)
	if err != nil {
		h.fail(c, "get transactions", err)
		return
	}

	c.JSON(http.StatusOK, TransactionsResponse{Items: transactions, Pagination: meta})
}

// PayWithOperator godoc
// @Summary      Pay with a mobile operator
// @Description  Simulated operator payment. Credits the requested amount.
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body OperatorPaymentRequest true "Payment"
// @Success      200  {object}  CreditsResponse
// @Failure      400  {object}  map[string]string
// @Router       /credits/pay-operator [post]
func (h *CreditsHandler) PayWithOperator(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req OperatorPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := h.creditsUseCase.PayWithOperator(c.Request.Context(), userID, entity.OperatorPayment{
		Phone:    req.Phone,
		Amount:   req.Amount,
		Operator: req.Operator,
	})
	if err != nil {
		h.fail(c, "process operator payment", err)
		return
	}

	c.JSON(http.StatusOK, CreditsResponse{Message: "Payment processed successfully (mock)", Credits: balance})
}

func (h *CreditsHandler) fail(c *gin.Context, action string, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Failed to %s: %v", action, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
