// Package reservation owns the reservation lifecycle: creation behind the
// availability check, reviewer decisions, and the completion sweep transition.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"space-booking-backend/internal/apperr"
	"space-booking-backend/internal/availability"
	"space-booking-backend/internal/model"
	"space-booking-backend/internal/notification"
	"space-booking-backend/internal/store"
	"space-booking-backend/internal/timewindow"
)

// Refunder triggers a refund for a paid reservation. Satisfied by
// refund.Automation.
type Refunder interface {
	ProcessRefund(ctx context.Context, reservationID uuid.UUID, reason string) (*model.Refund, error)
}

// Draft is a borrower's reservation request after edge validation.
type Draft struct {
	SpaceID      uuid.UUID
	RequesterID  *uuid.UUID
	ActivityName string
	Window       timewindow.Window
	DocumentRef  string
}

// Patch carries the mutable fields of a reservation edit. Nil fields are left
// unchanged.
type Patch struct {
	ActivityName *string
	DocumentRef  *string
	Window       *timewindow.Window
}

// Service is the reservation state machine.
type Service struct {
	store      store.Store
	locks      *spaceLocker
	dispatcher notification.Dispatcher
	refunds    Refunder
}

// NewService creates the reservation service. refunds may be set later via
// SetRefunder to break the construction-order knot with the refund automation.
func NewService(s store.Store, dispatcher notification.Dispatcher) *Service {
	return &Service{
		store:      s,
		locks:      newSpaceLocker(),
		dispatcher: dispatcher,
	}
}

// SetRefunder wires the refund automation invoked on rejection of a paid
// reservation.
func (svc *Service) SetRefunder(r Refunder) {
	svc.refunds = r
}

// Create validates the draft, checks availability, and commits the
// reservation in PROCESSING. The availability check and the insert run inside
// one transaction under the per-space lock so two concurrent requests cannot
// both observe a free window.
func (svc *Service) Create(ctx context.Context, draft Draft) (*model.Reservation, error) {
	if err := draft.Window.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if draft.ActivityName == "" {
		return nil, apperr.Validation("activity name is required")
	}

	if _, err := svc.store.GetSpace(ctx, draft.SpaceID); err != nil {
		return nil, asNotFound(err, "space not found")
	}

	unlock := svc.locks.Lock(draft.SpaceID)
	defer unlock()

	r := &model.Reservation{
		SpaceID:      draft.SpaceID,
		RequesterID:  draft.RequesterID,
		ActivityName: draft.ActivityName,
		StartDate:    draft.Window.StartDate,
		EndDate:      draft.Window.EndDate,
		StartMinute:  draft.Window.StartMinute,
		EndMinute:    draft.Window.EndMinute,
		DocumentRef:  draft.DocumentRef,
		Status:       model.ReservationProcessing,
	}

	err := svc.store.Transaction(ctx, func(tx store.Store) error {
		ok, err := availability.NewEngine(tx).IsAvailable(ctx, draft.SpaceID, draft.Window, nil)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict(fmt.Sprintf("space not available for requested window %s", draft.Window))
		}
		return tx.CreateReservation(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	svc.dispatcher.Dispatch(notification.Event{
		Kind:          notification.EventReservationCreated,
		ReservationID: r.ID,
		UserID:        r.RequesterID,
		Message:       fmt.Sprintf("Reservation for %s received and is being processed.", r.ActivityName),
	})
	return r, nil
}

// Get loads a reservation.
func (svc *Service) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r, err := svc.store.GetReservation(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "reservation not found")
	}
	return r, nil
}

// Update edits a reservation still under review. A date/time change re-runs
// the availability check excluding the reservation itself.
func (svc *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*model.Reservation, error) {
	if patch.Window != nil {
		if err := patch.Window.Validate(); err != nil {
			return nil, apperr.Validation(err.Error())
		}
	}

	current, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := svc.locks.Lock(current.SpaceID)
	defer unlock()

	var updated *model.Reservation
	err = svc.store.Transaction(ctx, func(tx store.Store) error {
		r, err := tx.GetReservation(ctx, id)
		if err != nil {
			return asNotFound(err, "reservation not found")
		}
		if r.Status != model.ReservationProcessing {
			return apperr.Precondition(fmt.Sprintf("reservation in status %s cannot be edited", r.Status))
		}

		if patch.Window != nil {
			ok, err := availability.NewEngine(tx).IsAvailable(ctx, r.SpaceID, *patch.Window, &r.ID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Conflict(fmt.Sprintf("space not available for requested window %s", *patch.Window))
			}
			r.StartDate = patch.Window.StartDate
			r.EndDate = patch.Window.EndDate
			r.StartMinute = patch.Window.StartMinute
			r.EndMinute = patch.Window.EndMinute
		}
		if patch.ActivityName != nil {
			r.ActivityName = *patch.ActivityName
		}
		if patch.DocumentRef != nil {
			r.DocumentRef = *patch.DocumentRef
		}

		if err := tx.SaveReservation(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Approve moves a PROCESSING reservation to APPROVED.
func (svc *Service) Approve(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r, err := svc.transition(ctx, id, model.ReservationApproved, "", model.ReservationProcessing)
	if err != nil {
		return nil, err
	}

	svc.dispatcher.Dispatch(notification.Event{
		Kind:          notification.EventReservationApproved,
		ReservationID: r.ID,
		UserID:        r.RequesterID,
		Message:       fmt.Sprintf("Reservation for %s was approved. Payment is now open.", r.ActivityName),
	})
	return r, nil
}

// Reject moves a reservation under review or already approved to REJECTED
// and, when a settled payment exists, triggers the refund automation. A
// refund failure is logged and recorded by the automation but never rolls
// back the rejection.
func (svc *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*model.Reservation, error) {
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}

	// An approved-and-paid reservation can still be rejected; that is the
	// path that triggers the refund below.
	r, err := svc.transition(ctx, id, model.ReservationRejected, reason,
		model.ReservationProcessing, model.ReservationApproved)
	if err != nil {
		return nil, err
	}

	if svc.refunds != nil {
		payment, err := svc.store.GetPaymentByReservation(ctx, id)
		switch {
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			log.Printf("Error checking payment for rejected reservation %s: %v", id, err)
		case err == nil && payment.Status == model.PaymentPaid:
			if _, err := svc.refunds.ProcessRefund(ctx, id, reason); err != nil {
				log.Printf("Refund for rejected reservation %s failed (manual follow-up required): %v", id, err)
			}
		}
	}

	svc.dispatcher.Dispatch(notification.Event{
		Kind:          notification.EventReservationRejected,
		ReservationID: r.ID,
		UserID:        r.RequesterID,
		Message:       fmt.Sprintf("Reservation for %s was rejected: %s", r.ActivityName, reason),
	})
	return r, nil
}

// transition applies a reviewer decision from one of the allowed states.
func (svc *Service) transition(ctx context.Context, id uuid.UUID, to model.ReservationStatus, reason string, from ...model.ReservationStatus) (*model.Reservation, error) {
	var r *model.Reservation
	err := svc.store.Transaction(ctx, func(tx store.Store) error {
		cur, err := tx.GetReservation(ctx, id)
		if err != nil {
			return asNotFound(err, "reservation not found")
		}
		allowed := false
		for _, s := range from {
			if cur.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperr.Precondition(fmt.Sprintf("reservation in status %s cannot be decided", cur.Status))
		}
		cur.Status = to
		cur.RejectionReason = reason
		if err := tx.SaveReservation(ctx, cur); err != nil {
			return err
		}
		r = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a reservation. Refused while a settled payment exists.
func (svc *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return svc.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetReservation(ctx, id); err != nil {
			return asNotFound(err, "reservation not found")
		}

		payment, err := tx.GetPaymentByReservation(ctx, id)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			if payment.Status == model.PaymentPaid {
				return apperr.Precondition("reservation has a settled payment and cannot be deleted")
			}
			if err := tx.DB().Delete(payment).Error; err != nil {
				return fmt.Errorf("failed to delete payment %s: %w", payment.ID, err)
			}
		}
		return tx.DeleteReservation(ctx, id)
	})
}

// CompleteElapsed transitions APPROVED reservations whose window has passed to
// COMPLETED. Driven by the sweeper.
func (svc *Service) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	return svc.store.CompleteElapsed(ctx, now)
}

func asNotFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}
