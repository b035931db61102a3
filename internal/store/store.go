// Package store is the persistence layer. All reads and writes go through the
// Store interface; Transaction yields a Store scoped to one database
// transaction so check-then-act sequences stay atomic.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"space-booking-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// DB exposes the underlying handle for the notification worker and tests.
	DB() *gorm.DB
	// Transaction runs fn with a Store bound to a single transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetSpace(ctx context.Context, id uuid.UUID) (*model.Space, error)
	ListSpaces(ctx context.Context) ([]model.Space, error)

	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	SaveReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id uuid.UUID) error
	// FindActiveOverlapCandidates returns reservations for the space in an
	// availability-blocking status whose date range intersects [start, end].
	// The time dimension is compared by the caller.
	FindActiveOverlapCandidates(ctx context.Context, spaceID uuid.UUID, startDate, endDate time.Time, exclude *uuid.UUID) ([]model.Reservation, error)
	// CompleteElapsed moves APPROVED reservations whose window has fully
	// passed to COMPLETED, returning the number transitioned.
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)

	CreatePayment(ctx context.Context, p *model.Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetPaymentByReservation(ctx context.Context, reservationID uuid.UUID) (*model.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	SavePayment(ctx context.Context, p *model.Payment) error

	CreateRefund(ctx context.Context, r *model.Refund) error
	GetRefund(ctx context.Context, id uuid.UUID) (*model.Refund, error)
	GetRefundByPayment(ctx context.Context, paymentID uuid.UUID) (*model.Refund, error)
	SaveRefund(ctx context.Context, r *model.Refund) error
	ListRefundsByStatus(ctx context.Context, status model.RefundStatus) ([]model.Refund, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) GetSpace(ctx context.Context, id uuid.UUID) (*model.Space, error) {
	var sp model.Space
	if err := s.db.WithContext(ctx).First(&sp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *gormStore) ListSpaces(ctx context.Context) ([]model.Space, error) {
	var spaces []model.Space
	if err := s.db.WithContext(ctx).Order("name").Find(&spaces).Error; err != nil {
		return nil, err
	}
	return spaces, nil
}

func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (s *gormStore) GetReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) SaveReservation(ctx context.Context, r *model.Reservation) error {
	if err := s.db.WithContext(ctx).Save(r).Error; err != nil {
		return fmt.Errorf("failed to save reservation %s: %w", r.ID, err)
	}
	return nil
}

func (s *gormStore) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&model.Reservation{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete reservation %s: %w", id, err)
	}
	return nil
}

func (s *gormStore) FindActiveOverlapCandidates(ctx context.Context, spaceID uuid.UUID, startDate, endDate time.Time, exclude *uuid.UUID) ([]model.Reservation, error) {
	q := s.db.WithContext(ctx).
		Where("space_id = ?", spaceID).
		Where("status IN ?", model.ActiveReservationStatuses).
		Where("start_date <= ? AND end_date >= ?", endDate, startDate)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}

	var candidates []model.Reservation
	if err := q.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to query overlap candidates for space %s: %w", spaceID, err)
	}
	return candidates, nil
}

func (s *gormStore) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	minute := now.Hour()*60 + now.Minute()

	res := s.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("status = ?", model.ReservationApproved).
		Where("end_date < ? OR (end_date = ? AND end_minute <= ?)", today, today, minute).
		Update("status", model.ReservationCompleted)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to complete elapsed reservations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) CreatePayment(ctx context.Context, p *model.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create payment for reservation %s: %w", p.ReservationID, err)
	}
	return nil
}

func (s *gormStore) GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) GetPaymentByReservation(ctx context.Context, reservationID uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := s.db.WithContext(ctx).First(&p, "reservation_id = ?", reservationID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) GetPaymentByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	var p model.Payment
	if err := s.db.WithContext(ctx).First(&p, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) SavePayment(ctx context.Context, p *model.Payment) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to save payment %s: %w", p.ID, err)
	}
	return nil
}

func (s *gormStore) CreateRefund(ctx context.Context, r *model.Refund) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create refund for payment %s: %w", r.PaymentID, err)
	}
	return nil
}

func (s *gormStore) GetRefund(ctx context.Context, id uuid.UUID) (*model.Refund, error) {
	var r model.Refund
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) GetRefundByPayment(ctx context.Context, paymentID uuid.UUID) (*model.Refund, error) {
	var r model.Refund
	if err := s.db.WithContext(ctx).First(&r, "payment_id = ?", paymentID).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) SaveRefund(ctx context.Context, r *model.Refund) error {
	if err := s.db.WithContext(ctx).Save(r).Error; err != nil {
		return fmt.Errorf("failed to save refund %s: %w", r.ID, err)
	}
	return nil
}

func (s *gormStore) ListRefundsByStatus(ctx context.Context, status model.RefundStatus) ([]model.Refund, error) {
	var refunds []model.Refund
	if err := s.db.WithContext(ctx).Where("status = ?", status).Find(&refunds).Error; err != nil {
		return nil, fmt.Errorf("failed to list refunds with status %s: %w", status, err)
	}
	return refunds, nil
}
