package http

import (
	"crypto/subtle"
	"net/http"

	"classifieds/services/credits/internal/entity"

	"github.com/gin-gonic/gin"
)

const webhookSecretHeader = "X-Webhook-Secret"

// Webhooks always answer 200 so providers stop retrying; anything that
// could not be credited is logged by the usecase.
func (h *CreditsHandler) acknowledge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *CreditsHandler) trusted(c *gin.Context, provider string) bool {
	if h.webhookSecret == "" {
		return true
	}
	got := c.GetHeader(webhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) == 1 {
		return true
	}
	h.logger.Warn("[WEBHOOK] Rejected %s delivery from %s: bad secret", provider, c.ClientIP())
	return false
}

// PaytechWebhook godoc
// @Summary      PayTech payment webhook
// @Description  Credits the user on status SUCCESS. Always acknowledged.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret header string false "Shared secret"
// @Param        request body entity.PaytechEvent true "PayTech event"
// @Success      200  {object}  map[string]bool
// @Router       /webhooks/paytech [post]
func (h *CreditsHandler) PaytechWebhook(c *gin.Context) {
	defer h.acknowledge(c)
	if !h.trusted(c, "paytech") {
		return
	}

	var event entity.PaytechEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("[WEBHOOK] Unreadable paytech body: %v", err)
		return
	}

	outcome := h.creditsUseCase.HandlePaytech(c.Request.Context(), event)
	h.logger.Info("[WEBHOOK] paytech %s: %s", event.TransactionID, outcome)
}

// StripeWebhook godoc
// @Summary      Stripe payment webhook
// @Description  Credits metadata.credits to metadata.userId on payment_intent.succeeded. Always acknowledged.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret header string false "Shared secret"
// @Param        request body entity.StripeEvent true "Stripe event"
// @Success      200  {object}  map[string]bool
// @Router       /webhooks/stripe [post]
func (h *CreditsHandler) StripeWebhook(c *gin.Context) {
	defer h.acknowledge(c)
	if !h.trusted(c, "stripe") {
		return
	}

	var event entity.StripeEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("[WEBHOOK] Unreadable stripe body: %v", err)
		return
	}

	outcome := h.creditsUseCase.HandleStripe(c.Request.Context(), event)
	h.logger.Info("[WEBHOOK] stripe %s (%s): %s", event.ID, event.Type, outcome)
}
