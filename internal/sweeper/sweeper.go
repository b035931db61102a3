// Package sweeper runs the periodic maintenance pass: completing elapsed
// reservations and reconciling refunds still pending at the gateway.
package sweeper

import (
	"context"
	"log"
	"time"

	"space-booking-backend/config"
	"space-booking-backend/internal/model"
	"space-booking-backend/internal/refund"
	"space-booking-backend/internal/reservation"
	"space-booking-backend/internal/store"
)

// Service is the background sweep loop.
type Service struct {
	cfg          *config.SweeperConfig
	store        store.Store
	reservations *reservation.Service
	refunds      *refund.Automation
}

// NewService creates the sweeper.
func NewService(cfg *config.SweeperConfig, s store.Store, reservations *reservation.Service, refunds *refund.Automation) *Service {
	return &Service{
		cfg:          cfg,
		store:        s,
		reservations: reservations,
		refunds:      refunds,
	}
}

// Run starts the sweep loop and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Sweeper is disabled. Not starting.")
		return
	}
	log.Println("Starting sweeper service...")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweeper service shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce performs a single maintenance pass.
func (s *Service) SweepOnce(ctx context.Context) {
	now := time.Now().UTC()

	completed, err := s.reservations.CompleteElapsed(ctx, now)
	if err != nil {
		log.Printf("Error completing elapsed reservations: %v", err)
	} else if completed > 0 {
		log.Printf("Completed %d elapsed reservations", completed)
	}

	pending, err := s.store.ListRefundsByStatus(ctx, model.RefundPending)
	if err != nil {
		log.Printf("Error listing pending refunds: %v", err)
		return
	}
	for _, r := range pending {
		status, err := s.refunds.CheckRefundStatus(ctx, r.ID)
		if err != nil {
			log.Printf("Error reconciling refund %s: %v", r.ID, err)
			continue
		}
		if status != model.RefundPending {
			log.Printf("Refund %s reconciled to %s", r.ID, status)
		}
	}
}
