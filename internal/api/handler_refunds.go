package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"space-booking-backend/internal/apperr"
	"space-booking-backend/internal/auth"
)

type manualRefundRequest struct {
	ReservationID string `json:"reservationId" binding:"required"`
	Reason        string `json:"reason" binding:"required,min=10"`
}

// CreateRefund handles POST /api/refunds, the administrative manual-refund
// path for refunds that failed during automatic processing.
func (h *Handler) CreateRefund(c *gin.Context) {
	_, role, ok := caller(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}
	if !auth.Authorize(role, auth.RoleAdmin) {
		respondError(c, apperr.Forbidden("admin role required"))
		return
	}

	var req manualRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservationId"})
		return
	}

	refund, err := h.refunds.ProcessRefund(c.Request.Context(), reservationID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, refund)
}

// GetRefundStatus handles GET /api/refunds/:id/status, polling the gateway
// for refunds still in flight.
func (h *Handler) GetRefundStatus(c *gin.Context) {
	_, role, ok := caller(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}
	if !auth.Authorize(role, auth.RoleStaff) {
		respondError(c, apperr.Forbidden("staff role required"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid refund id"})
		return
	}

	status, err := h.refunds.CheckRefundStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
