// Package payment orchestrates charges for approved reservations and the
// idempotent ingestion of gateway webhooks.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"space-booking-backend/internal/apperr"
	"space-booking-backend/internal/gateway"
	"space-booking-backend/internal/model"
	"space-booking-backend/internal/notification"
	"space-booking-backend/internal/store"
)

// ChargeIntent is the checkout session handed back for redirect.
type ChargeIntent struct {
	CheckoutURL  string `json:"checkoutUrl"`
	SessionToken string `json:"sessionToken"`
	OrderID      string `json:"orderId"`
}

// Orchestrator creates charge intents and reconciles gateway callbacks.
type Orchestrator struct {
	store      store.Store
	gateway    gateway.Client
	dispatcher notification.Dispatcher
	serverKey  string
	feePercent float64
}

// NewOrchestrator creates the payment orchestrator. feePercent is the flat
// gateway-fee estimate applied at charge-intent creation.
func NewOrchestrator(s store.Store, gw gateway.Client, dispatcher notification.Dispatcher, serverKey string, feePercent float64) *Orchestrator {
	return &Orchestrator{
		store:      s,
		gateway:    gw,
		dispatcher: dispatcher,
		serverKey:  serverKey,
		feePercent: feePercent,
	}
}

// CreateChargeIntent returns a checkout session for an approved reservation.
// Re-requesting while a non-terminal session exists returns that same session
// instead of creating a duplicate payment.
func (o *Orchestrator) CreateChargeIntent(ctx context.Context, reservationID, requesterID uuid.UUID) (*ChargeIntent, error) {
	r, err := o.store.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("reservation not found")
		}
		return nil, err
	}
	if r.RequesterID == nil || *r.RequesterID != requesterID {
		return nil, apperr.Forbidden("reservation does not belong to the requester")
	}
	if r.Status != model.ReservationApproved {
		return nil, apperr.Precondition(fmt.Sprintf("reservation in status %s cannot be paid", r.Status))
	}

	existing, err := o.store.GetPaymentByReservation(ctx, reservationID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		switch existing.Status {
		case model.PaymentPaid:
			return nil, apperr.AlreadyPaid()
		case model.PaymentRefunded:
			return nil, apperr.Conflict("payment for this reservation was refunded")
		case model.PaymentCheckout, model.PaymentPending:
			// Idempotent retry: hand back the live session.
			return &ChargeIntent{
				CheckoutURL:  existing.CheckoutURL,
				SessionToken: existing.SessionToken,
				OrderID:      existing.OrderID,
			}, nil
		}
		// CANCELED: the row is reused with a fresh session below.
	}

	space, err := o.store.GetSpace(ctx, r.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load space %s for pricing: %w", r.SpaceID, err)
	}

	amount := space.DailyPrice * int64(r.Window().Days())
	fee := int64(math.Round(float64(amount) * o.feePercent / 100))
	total := amount + fee
	orderID := uuid.NewString()

	session, err := o.gateway.CreateChargeSession(ctx, gateway.ChargeRequest{
		OrderID:     orderID,
		GrossAmount: total,
		CustomerID:  requesterID.String(),
		Description: fmt.Sprintf("Space reservation: %s", r.ActivityName),
	})
	if err != nil {
		return nil, apperr.Gateway("failed to create gateway charge session", err)
	}

	p := existing
	if p == nil {
		p = &model.Payment{ReservationID: reservationID}
	}
	p.OrderID = orderID
	p.TransactionID = ""
	p.Amount = amount
	p.GatewayFee = fee
	p.TotalAmount = total
	p.Method = ""
	p.CheckoutURL = session.RedirectURL
	p.SessionToken = session.Token
	p.Status = model.PaymentCheckout

	if existing == nil {
		err = o.store.CreatePayment(ctx, p)
	} else {
		err = o.store.SavePayment(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	return &ChargeIntent{
		CheckoutURL:  p.CheckoutURL,
		SessionToken: p.SessionToken,
		OrderID:      p.OrderID,
	}, nil
}

// HandleNotification ingests one gateway webhook. Signature verification runs
// before any state is touched; everything after is an idempotent
// compare-and-set so retried or raced deliveries cause no duplicate side
// effects.
func (o *Orchestrator) HandleNotification(ctx context.Context, n gateway.Notification) error {
	if !n.VerifySignature(o.serverKey) {
		return apperr.InvalidSignature()
	}

	mapped, known := mapTransactionStatus(n.TransactionStatus)
	if !known {
		log.Printf("Ignoring webhook with unmapped transaction status %q for order %s", n.TransactionStatus, n.OrderID)
		return nil
	}

	var settled *model.Reservation
	err := o.store.Transaction(ctx, func(tx store.Store) error {
		p, err := tx.GetPaymentByOrderID(ctx, n.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Gateways retry notifications for orders we never created.
				log.Printf("Ignoring webhook for unknown order %s", n.OrderID)
				return nil
			}
			return err
		}

		if p.Status == model.PaymentRefunded || p.Status == mapped {
			return nil
		}

		p.Status = mapped
		p.TransactionID = n.TransactionID
		p.Method = n.PaymentType
		if err := tx.SavePayment(ctx, p); err != nil {
			return err
		}

		if mapped == model.PaymentPaid {
			r, err := tx.GetReservation(ctx, p.ReservationID)
			if err != nil {
				return err
			}
			r.PaymentConfirmed = true
			if err := tx.SaveReservation(ctx, r); err != nil {
				return err
			}
			settled = r
		}
		return nil
	})
	if err != nil {
		return err
	}

	if settled != nil {
		o.dispatcher.Dispatch(notification.Event{
			Kind:          notification.EventPaymentSettled,
			ReservationID: settled.ID,
			UserID:        settled.RequesterID,
			Message:       fmt.Sprintf("Payment for %s settled.", settled.ActivityName),
		})
	}
	return nil
}

// mapTransactionStatus translates the gateway's transaction vocabulary into
// payment states. Unknown statuses leave the payment untouched.
func mapTransactionStatus(s string) (model.PaymentStatus, bool) {
	switch s {
	case "capture", "settlement":
		return model.PaymentPaid, true
	case "pending":
		return model.PaymentPending, true
	case "deny", "cancel", "expire":
		return model.PaymentCanceled, true
	case "refund":
		return model.PaymentRefunded, true
	}
	return "", false
}
