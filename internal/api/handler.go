package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"space-booking-backend/internal/apperr"
	"space-booking-backend/internal/auth"
	"space-booking-backend/internal/payment"
	"space-booking-backend/internal/refund"
	"space-booking-backend/internal/reservation"
	"space-booking-backend/internal/store"
)

// Identity headers are filled in by the upstream auth layer.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store        store.Store
	reservations *reservation.Service
	payments     *payment.Orchestrator
	refunds      *refund.Automation
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, reservations *reservation.Service, payments *payment.Orchestrator, refunds *refund.Automation) *Handler {
	return &Handler{
		store:        s,
		reservations: reservations,
		payments:     payments,
		refunds:      refunds,
	}
}

// caller extracts the request identity from headers.
func caller(c *gin.Context) (uuid.UUID, auth.Role, bool) {
	id, err := uuid.Parse(c.GetHeader(headerUserID))
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, auth.ParseRole(c.GetHeader(headerUserRole)), true
}

// respondError maps an error onto the HTTP response.
func respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		c.AbortWithStatusJSON(ae.Status, gin.H{"error": ae.Message, "code": ae.Code})
		return
	}
	log.Printf("Internal error handling %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func respondUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + headerUserID + " header"})
}
