package model

import (
	"time"

	"github.com/google/uuid"

	"space-booking-backend/internal/timewindow"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationSubmitted  ReservationStatus = "SUBMITTED"
	ReservationProcessing ReservationStatus = "PROCESSING"
	ReservationApproved   ReservationStatus = "APPROVED"
	ReservationRejected   ReservationStatus = "REJECTED"
	ReservationCompleted  ReservationStatus = "COMPLETED"
)

// ActiveReservationStatuses are the states that block a space's timeline for
// conflict checks. REJECTED and COMPLETED never block future windows.
var ActiveReservationStatuses = []ReservationStatus{
	ReservationSubmitted,
	ReservationProcessing,
	ReservationApproved,
}

// Reservation represents a request to use a space for a bounded date/time
// window. Times are stored as minutes since midnight; dates as UTC midnights.
type Reservation struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SpaceID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	RequesterID  *uuid.UUID `gorm:"type:uuid;index"` // cleared if the account is deleted
	ActivityName string     `gorm:"size:256;not null"`
	StartDate    time.Time  `gorm:"not null;index"`
	EndDate      time.Time  `gorm:"not null"`
	StartMinute  int        `gorm:"not null"`
	EndMinute    int        `gorm:"not null"`
	DocumentRef  string     `gorm:"size:512"`

	Status          ReservationStatus `gorm:"size:16;not null;index"`
	RejectionReason string            `gorm:"type:text"`
	// PaymentConfirmed is the administrative flag set when the gateway reports
	// settlement. It is independent of Status, which stays reviewer-governed.
	PaymentConfirmed bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	Space Space `gorm:"constraint:OnDelete:CASCADE"`
}

// Window returns the reservation's occupancy window.
func (r *Reservation) Window() timewindow.Window {
	return timewindow.Window{
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		StartMinute: r.StartMinute,
		EndMinute:   r.EndMinute,
	}
}
