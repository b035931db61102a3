package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"space-booking-backend/internal/gateway"
)

// CreateChargeIntent handles POST /api/reservations/:id/payment. The caller
// must be the reservation's requester.
func (h *Handler) CreateChargeIntent(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	intent, err := h.payments.CreateChargeIntent(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

// GatewayNotification handles POST /api/payments/notification, the webhook
// ingress. Per the gateway contract it always answers 200; internal failures
// are logged rather than surfaced so the gateway does not retry-storm us.
func (h *Handler) GatewayNotification(c *gin.Context) {
	var n gateway.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		log.Printf("Ignoring malformed gateway notification: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if err := h.payments.HandleNotification(c.Request.Context(), n); err != nil {
		log.Printf("Gateway notification for order %s not applied: %v", n.OrderID, err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
