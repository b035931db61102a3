package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the settlement state of a payment as reported by the
// gateway.
type PaymentStatus string

const (
	PaymentCheckout PaymentStatus = "CHECKOUT"
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentCanceled PaymentStatus = "CANCELED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Payment is the charge attached to an approved reservation. One payment per
// reservation; the unique index on ReservationID is part of the storage
// contract, not just application logic.
type Payment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReservationID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	OrderID       string    `gorm:"size:64;uniqueIndex;not null"` // id sent to the gateway
	TransactionID string    `gorm:"size:128"`
	Amount        int64     `gorm:"not null"`
	GatewayFee    int64     `gorm:"not null"`
	TotalAmount   int64     `gorm:"not null"`
	Method        string    `gorm:"size:64"`
	CheckoutURL   string    `gorm:"size:512"`
	SessionToken  string    `gorm:"size:256"`

	Status PaymentStatus `gorm:"size:16;not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
