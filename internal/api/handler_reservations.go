package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"space-booking-backend/internal/apperr"
	"space-booking-backend/internal/auth"
	"space-booking-backend/internal/model"
	"space-booking-backend/internal/reservation"
	"space-booking-backend/internal/timewindow"
)

type createReservationRequest struct {
	SpaceID      string `json:"spaceId" binding:"required"`
	ActivityName string `json:"activityName" binding:"required"`
	StartDate    string `json:"startDate" binding:"required"`
	EndDate      string `json:"endDate"`
	StartTime    string `json:"startTime" binding:"required"`
	EndTime      string `json:"endTime" binding:"required"`
	DocumentRef  string `json:"supportingDocumentRef"`
}

type reservationResponse struct {
	ID               uuid.UUID  `json:"id"`
	SpaceID          uuid.UUID  `json:"spaceId"`
	RequesterID      *uuid.UUID `json:"requesterId,omitempty"`
	ActivityName     string     `json:"activityName"`
	StartDate        string     `json:"startDate"`
	EndDate          string     `json:"endDate"`
	StartTime        string     `json:"startTime"`
	EndTime          string     `json:"endTime"`
	DocumentRef      string     `json:"supportingDocumentRef,omitempty"`
	Status           string     `json:"status"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
	PaymentConfirmed bool       `json:"paymentConfirmed"`
}

func toReservationResponse(r *model.Reservation) reservationResponse {
	return reservationResponse{
		ID:               r.ID,
		SpaceID:          r.SpaceID,
		RequesterID:      r.RequesterID,
		ActivityName:     r.ActivityName,
		StartDate:        r.StartDate.Format(timewindow.DateLayout),
		EndDate:          r.EndDate.Format(timewindow.DateLayout),
		StartTime:        timewindow.FormatClock(r.StartMinute),
		EndTime:          timewindow.FormatClock(r.EndMinute),
		DocumentRef:      r.DocumentRef,
		Status:           string(r.Status),
		RejectionReason:  r.RejectionReason,
		PaymentConfirmed: r.PaymentConfirmed,
	}
}

// parseWindow turns the textual date/time fields into a validated window.
func parseWindow(startDate, endDate, startTime, endTime string) (timewindow.Window, error) {
	sd, err := timewindow.ParseDate(startDate)
	if err != nil {
		return timewindow.Window{}, apperr.Validation(err.Error())
	}
	var ed = sd
	if endDate != "" {
		if ed, err = timewindow.ParseDate(endDate); err != nil {
			return timewindow.Window{}, apperr.Validation(err.Error())
		}
	}
	sm, err := timewindow.ParseClock(startTime)
	if err != nil {
		return timewindow.Window{}, apperr.Validation(err.Error())
	}
	em, err := timewindow.ParseClock(endTime)
	if err != nil {
		return timewindow.Window{}, apperr.Validation(err.Error())
	}
	w, err := timewindow.New(sd, ed, sm, em)
	if err != nil {
		return timewindow.Window{}, apperr.Validation(err.Error())
	}
	return w, nil
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}

	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spaceID, err := uuid.Parse(req.SpaceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid spaceId"})
		return
	}
	window, err := parseWindow(req.StartDate, req.EndDate, req.StartTime, req.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}

	r, err := h.reservations.Create(c.Request.Context(), reservation.Draft{
		SpaceID:      spaceID,
		RequesterID:  &userID,
		ActivityName: req.ActivityName,
		Window:       window,
		DocumentRef:  req.DocumentRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetReservation handles GET /api/reservations/:id.
func (h *Handler) GetReservation(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	r, err := h.reservations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !auth.IsOwner(role, userID, r.RequesterID) {
		respondError(c, apperr.Forbidden("not your reservation"))
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(r))
}

type updateReservationRequest struct {
	ActivityName *string `json:"activityName"`
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	DocumentRef  *string `json:"supportingDocumentRef"`
}

// UpdateReservation handles PATCH /api/reservations/:id.
func (h *Handler) UpdateReservation(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	var req updateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current, err := h.reservations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !auth.IsOwner(role, userID, current.RequesterID) {
		respondError(c, apperr.Forbidden("not your reservation"))
		return
	}

	patch := reservation.Patch{
		ActivityName: req.ActivityName,
		DocumentRef:  req.DocumentRef,
	}
	if req.StartDate != "" || req.EndDate != "" || req.StartTime != "" || req.EndTime != "" {
		if req.StartDate == "" || req.StartTime == "" || req.EndTime == "" {
			respondError(c, apperr.Validation("a date/time change requires startDate, startTime and endTime"))
			return
		}
		window, err := parseWindow(req.StartDate, req.EndDate, req.StartTime, req.EndTime)
		if err != nil {
			respondError(c, err)
			return
		}
		patch.Window = &window
	}

	r, err := h.reservations.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(r))
}

// DeleteReservation handles DELETE /api/reservations/:id.
func (h *Handler) DeleteReservation(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	r, err := h.reservations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !auth.IsOwner(role, userID, r.RequesterID) {
		respondError(c, apperr.Forbidden("not your reservation"))
		return
	}

	if err := h.reservations.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type decisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Reason   string `json:"reason"`
}

// DecideReservation handles POST /api/reservations/:id/decision. Staff only.
func (h *Handler) DecideReservation(c *gin.Context) {
	_, role, ok := caller(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}
	if !auth.Authorize(role, auth.RoleStaff) {
		respondError(c, apperr.Forbidden("reviewer role required"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var r *model.Reservation
	if req.Decision == "approve" {
		r, err = h.reservations.Approve(c.Request.Context(), id)
	} else {
		r, err = h.reservations.Reject(c.Request.Context(), id, req.Reason)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(r))
}
