// Package refund returns money for paid reservations that were later
// rejected, and reconciles refund state against the gateway.
package refund

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"space-booking-backend/internal/apperr"
	"space-booking-backend/internal/gateway"
	"space-booking-backend/internal/model"
	"space-booking-backend/internal/store"
)

// Automation issues refunds against the gateway and records their outcome.
type Automation struct {
	store   store.Store
	gateway gateway.Client
}

// NewAutomation creates the refund automation.
func NewAutomation(s store.Store, gw gateway.Client) *Automation {
	return &Automation{store: s, gateway: gw}
}

// ProcessRefund refunds the settled payment of a reservation. On gateway
// success the refund is recorded PROCESSED and the payment becomes REFUNDED;
// on gateway failure a FAILED refund is recorded, the payment is left
// untouched, and the error surfaces for manual follow-up. The gateway call is
// never blindly retried: a duplicate refund is a worse failure than a missed
// one.
func (a *Automation) ProcessRefund(ctx context.Context, reservationID uuid.UUID, reason string) (*model.Refund, error) {
	payment, err := a.store.GetPaymentByReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no payment exists for this reservation")
		}
		return nil, err
	}
	if payment.Status != model.PaymentPaid {
		return nil, apperr.Precondition("payment is not settled; nothing to refund")
	}
	if _, err := a.store.GetRefundByPayment(ctx, payment.ID); err == nil {
		return nil, apperr.AlreadyRefunded()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	result, gwErr := a.gateway.Refund(ctx, gateway.RefundRequest{
		OrderID: payment.OrderID,
		Amount:  payment.TotalAmount,
		Reason:  reason,
	})

	refund := &model.Refund{
		PaymentID: payment.ID,
		Amount:    payment.TotalAmount,
		Reason:    reason,
		IssuedAt:  time.Now().UTC(),
	}

	if gwErr != nil {
		refund.Status = model.RefundFailed
		if err := a.store.CreateRefund(ctx, refund); err != nil {
			log.Printf("Failed to record failed refund for payment %s: %v", payment.ID, err)
		}
		return refund, apperr.Gateway("gateway refund request failed", gwErr)
	}

	refund.GatewayRef = result.RefundKey
	refund.Status = mapRefundStatus(result.Status)

	err = a.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateRefund(ctx, refund); err != nil {
			return err
		}
		if refund.Status == model.RefundProcessed {
			payment.Status = model.PaymentRefunded
			return tx.SavePayment(ctx, payment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// CheckRefundStatus polls the gateway for a refund still in flight and
// updates the local record. PROCESSED refunds are terminal.
func (a *Automation) CheckRefundStatus(ctx context.Context, refundID uuid.UUID) (model.RefundStatus, error) {
	refund, err := a.store.GetRefund(ctx, refundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("refund not found")
		}
		return "", err
	}
	if refund.Status == model.RefundProcessed {
		return refund.Status, nil
	}
	if refund.GatewayRef == "" {
		// The gateway never accepted this refund; there is nothing to poll.
		return refund.Status, nil
	}

	gwStatus, err := a.gateway.RefundStatus(ctx, refund.GatewayRef)
	if err != nil {
		return "", apperr.Gateway("gateway refund status poll failed", err)
	}

	newStatus := mapRefundStatus(gwStatus)
	if newStatus == refund.Status {
		return refund.Status, nil
	}

	refund.Status = newStatus
	err = a.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.SaveRefund(ctx, refund); err != nil {
			return err
		}
		if newStatus == model.RefundProcessed {
			payment, err := tx.GetPayment(ctx, refund.PaymentID)
			if err != nil {
				return err
			}
			payment.Status = model.PaymentRefunded
			return tx.SavePayment(ctx, payment)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return refund.Status, nil
}

func mapRefundStatus(s string) model.RefundStatus {
	switch s {
	case "pending":
		return model.RefundPending
	case "failed", "denied":
		return model.RefundFailed
	default:
		return model.RefundProcessed
	}
}
