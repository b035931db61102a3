package model

import (
	"time"

	"github.com/google/uuid"
)

// RefundStatus is the state of a refund request against the gateway.
type RefundStatus string

const (
	RefundProcessed RefundStatus = "PROCESSED"
	RefundFailed    RefundStatus = "FAILED"
	RefundPending   RefundStatus = "PENDING"
)

// Refund records money returned (or attempted) for a paid reservation that was
// later rejected. At most one refund per payment.
type Refund struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	PaymentID  uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Amount     int64     `gorm:"not null"`
	Status     RefundStatus `gorm:"size:16;not null;index"`
	Reason     string    `gorm:"type:text"`
	GatewayRef string    `gorm:"size:128"`
	IssuedAt   time.Time `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
