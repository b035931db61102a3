package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"space-booking-backend/config"
	"space-booking-backend/internal/gateway"
	"space-booking-backend/internal/model"
	"space-booking-backend/internal/notification"
	"space-booking-backend/internal/refund"
	"space-booking-backend/internal/reservation"
	"space-booking-backend/internal/store"
)

type pollGateway struct {
	status string
}

func (g *pollGateway) CreateChargeSession(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeSession, error) {
	return nil, errors.New("not used in this test")
}

func (g *pollGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	return nil, errors.New("not used in this test")
}

func (g *pollGateway) RefundStatus(ctx context.Context, refundKey string) (string, error) {
	return g.status, nil
}

type dropDispatcher struct{}

func (dropDispatcher) Dispatch(notification.Event) {}

func TestSweepOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:sweep?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Space{}, &model.Reservation{}, &model.Payment{}, &model.Refund{}))

	s := store.NewGormStore(db)
	gw := &pollGateway{status: "processed"}
	svc := NewService(
		&config.SweeperConfig{Enabled: true, Interval: time.Hour},
		s,
		reservation.NewService(s, dropDispatcher{}),
		refund.NewAutomation(s, gw),
	)

	ctx := context.Background()

	// An approved reservation whose window is long past.
	elapsed := &model.Reservation{
		SpaceID:      uuid.New(),
		ActivityName: "Past Event",
		StartDate:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		StartMinute:  9 * 60,
		EndMinute:    17 * 60,
		Status:       model.ReservationApproved,
	}
	require.NoError(t, s.CreateReservation(ctx, elapsed))

	// A refund still pending at the gateway.
	p := &model.Payment{
		ReservationID: elapsed.ID,
		OrderID:       uuid.NewString(),
		TotalAmount:   100000,
		Status:        model.PaymentPaid,
	}
	require.NoError(t, s.CreatePayment(ctx, p))
	r := &model.Refund{
		PaymentID:  p.ID,
		Amount:     100000,
		Status:     model.RefundPending,
		GatewayRef: "ref-1",
	}
	require.NoError(t, s.CreateRefund(ctx, r))

	svc.SweepOnce(ctx)

	got, err := s.GetReservation(ctx, elapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCompleted, got.Status)

	gotRefund, err := s.GetRefund(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefundProcessed, gotRefund.Status)

	gotPayment, err := s.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, gotPayment.Status)
}
