package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"space-booking-backend/internal/apperr"
	"space-booking-backend/internal/gateway"
	"space-booking-backend/internal/model"
	"space-booking-backend/internal/notification"
	"space-booking-backend/internal/store"
	"space-booking-backend/internal/timewindow"
)

const testServerKey = "test-server-key"

type fakeGateway struct {
	chargeCalls int
	chargeErr   error
}

func (f *fakeGateway) CreateChargeSession(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeSession, error) {
	f.chargeCalls++
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return &gateway.ChargeSession{
		Token:       "token-" + req.OrderID,
		RedirectURL: "https://gateway.example/pay/" + req.OrderID,
	}, nil
}

func (f *fakeGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	return nil, errors.New("not implemented in this test")
}

func (f *fakeGateway) RefundStatus(ctx context.Context, refundKey string) (string, error) {
	return "", errors.New("not implemented in this test")
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notification.Event
}

func (d *recordingDispatcher) Dispatch(e notification.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *recordingDispatcher) count(kind notification.EventKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, e := range d.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	orchestrator *Orchestrator
	store        store.Store
	gateway      *fakeGateway
	dispatcher   *recordingDispatcher
	reservation  *model.Reservation
	requesterID  uuid.UUID
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Space{}, &model.Reservation{}, &model.Payment{}))

	s := store.NewGormStore(db)
	ctx := context.Background()

	space := model.Space{ID: uuid.New(), Name: "Hall B", DailyPrice: 100000}
	require.NoError(t, db.Create(&space).Error)

	requesterID := uuid.New()
	startDate, err := timewindow.ParseDate("10-06-2025")
	require.NoError(t, err)
	endDate, err := timewindow.ParseDate("11-06-2025")
	require.NoError(t, err)
	r := &model.Reservation{
		SpaceID:      space.ID,
		RequesterID:  &requesterID,
		ActivityName: "Exhibition",
		StartDate:    startDate,
		EndDate:      endDate,
		StartMinute:  9 * 60,
		EndMinute:    17 * 60,
		Status:       model.ReservationApproved,
	}
	require.NoError(t, s.CreateReservation(ctx, r))

	gw := &fakeGateway{}
	dispatcher := &recordingDispatcher{}
	return &fixture{
		orchestrator: NewOrchestrator(s, gw, dispatcher, testServerKey, 2.0),
		store:        s,
		gateway:      gw,
		dispatcher:   dispatcher,
		reservation:  r,
		requesterID:  requesterID,
	}
}

// signedNotification builds a webhook payload with a valid signature.
func signedNotification(orderID, status, grossAmount string) gateway.Notification {
	return gateway.Notification{
		OrderID:           orderID,
		TransactionStatus: status,
		TransactionID:     "trx-" + orderID,
		StatusCode:        "200",
		GrossAmount:       grossAmount,
		SignatureKey:      gateway.Signature(orderID, "200", grossAmount, testServerKey),
		PaymentType:       "bank_transfer",
	}
}

func TestCreateChargeIntent(t *testing.T) {
	f := newFixture(t, "pay_intent")
	ctx := context.Background()

	intent, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
	require.NoError(t, err)
	assert.NotEmpty(t, intent.OrderID)
	assert.Equal(t, "token-"+intent.OrderID, intent.SessionToken)
	assert.Equal(t, 1, f.gateway.chargeCalls)

	p, err := f.store.GetPaymentByReservation(ctx, f.reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCheckout, p.Status)
	// Two inclusive days at 100000/day plus the 2% fee estimate.
	assert.Equal(t, int64(200000), p.Amount)
	assert.Equal(t, int64(4000), p.GatewayFee)
	assert.Equal(t, int64(204000), p.TotalAmount)

	t.Run("retry returns the same session", func(t *testing.T) {
		again, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
		require.NoError(t, err)
		assert.Equal(t, intent, again)
		assert.Equal(t, 1, f.gateway.chargeCalls, "no second gateway session")

		var count int64
		require.NoError(t, f.store.DB().Model(&model.Payment{}).Count(&count).Error)
		assert.Equal(t, int64(1), count, "no duplicate payment rows")
	})

	t.Run("foreign requester is refused", func(t *testing.T) {
		_, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, uuid.New())
		require.Error(t, err)
		assert.Equal(t, 403, apperr.HTTPStatus(err))
	})

	t.Run("paid reservation refuses a new charge", func(t *testing.T) {
		require.NoError(t, f.orchestrator.HandleNotification(ctx,
			signedNotification(intent.OrderID, "settlement", "204000.00")))

		_, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, "already_paid"))
	})
}

func TestCreateChargeIntentPreconditions(t *testing.T) {
	f := newFixture(t, "pay_precond")
	ctx := context.Background()

	t.Run("unknown reservation", func(t *testing.T) {
		_, err := f.orchestrator.CreateChargeIntent(ctx, uuid.New(), f.requesterID)
		assert.Equal(t, 404, apperr.HTTPStatus(err))
	})

	t.Run("unapproved reservation", func(t *testing.T) {
		f.reservation.Status = model.ReservationProcessing
		require.NoError(t, f.store.SaveReservation(ctx, f.reservation))

		_, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
		assert.Equal(t, 412, apperr.HTTPStatus(err))

		f.reservation.Status = model.ReservationApproved
		require.NoError(t, f.store.SaveReservation(ctx, f.reservation))
	})

	t.Run("gateway failure surfaces", func(t *testing.T) {
		f.gateway.chargeErr = errors.New("upstream timeout")
		_, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, "gateway_error"))

		// Nothing was persisted for the failed session.
		_, err = f.store.GetPaymentByReservation(ctx, f.reservation.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestCanceledSessionIsReplaced(t *testing.T) {
	f := newFixture(t, "pay_cancel")
	ctx := context.Background()

	intent, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
	require.NoError(t, err)

	require.NoError(t, f.orchestrator.HandleNotification(ctx,
		signedNotification(intent.OrderID, "expire", "204000.00")))

	fresh, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
	require.NoError(t, err)
	assert.NotEqual(t, intent.OrderID, fresh.OrderID)

	var count int64
	require.NoError(t, f.store.DB().Model(&model.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "the canceled row is reused, not duplicated")

	p, err := f.store.GetPaymentByReservation(ctx, f.reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCheckout, p.Status)
	assert.Equal(t, fresh.OrderID, p.OrderID)
}

func TestHandleNotification(t *testing.T) {
	f := newFixture(t, "pay_webhook")
	ctx := context.Background()

	intent, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
	require.NoError(t, err)

	t.Run("settlement marks the payment paid", func(t *testing.T) {
		n := signedNotification(intent.OrderID, "settlement", "204000.00")
		require.NoError(t, f.orchestrator.HandleNotification(ctx, n))

		p, err := f.store.GetPaymentByOrderID(ctx, intent.OrderID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentPaid, p.Status)
		assert.Equal(t, "trx-"+intent.OrderID, p.TransactionID)
		assert.Equal(t, "bank_transfer", p.Method)

		r, err := f.store.GetReservation(ctx, f.reservation.ID)
		require.NoError(t, err)
		assert.True(t, r.PaymentConfirmed)
		assert.Equal(t, model.ReservationApproved, r.Status, "settlement does not change reviewer status")
	})

	t.Run("re-delivery is a no-op", func(t *testing.T) {
		n := signedNotification(intent.OrderID, "settlement", "204000.00")
		for i := 0; i < 3; i++ {
			require.NoError(t, f.orchestrator.HandleNotification(ctx, n))
		}
		assert.Equal(t, 1, f.dispatcher.count(notification.EventPaymentSettled),
			"exactly one settled event regardless of deliveries")
	})
}

func TestHandleNotificationRejectsBadSignature(t *testing.T) {
	f := newFixture(t, "pay_badsig")
	ctx := context.Background()

	intent, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
	require.NoError(t, err)

	n := signedNotification(intent.OrderID, "settlement", "204000.00")
	n.SignatureKey = "forged"

	err = f.orchestrator.HandleNotification(ctx, n)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "invalid_signature"))

	// Zero state change.
	p, err := f.store.GetPaymentByOrderID(ctx, intent.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCheckout, p.Status)
	assert.Equal(t, 0, f.dispatcher.count(notification.EventPaymentSettled))
}

func TestHandleNotificationEdgeCases(t *testing.T) {
	f := newFixture(t, "pay_edges")
	ctx := context.Background()

	intent, err := f.orchestrator.CreateChargeIntent(ctx, f.reservation.ID, f.requesterID)
	require.NoError(t, err)

	t.Run("unknown order is ignored", func(t *testing.T) {
		assert.NoError(t, f.orchestrator.HandleNotification(ctx,
			signedNotification("no-such-order", "settlement", "1.00")))
	})

	t.Run("unmapped status leaves the payment unchanged", func(t *testing.T) {
		require.NoError(t, f.orchestrator.HandleNotification(ctx,
			signedNotification(intent.OrderID, "authorize", "204000.00")))

		p, err := f.store.GetPaymentByOrderID(ctx, intent.OrderID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentCheckout, p.Status)
	})

	t.Run("pending then settlement", func(t *testing.T) {
		require.NoError(t, f.orchestrator.HandleNotification(ctx,
			signedNotification(intent.OrderID, "pending", "204000.00")))
		p, err := f.store.GetPaymentByOrderID(ctx, intent.OrderID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentPending, p.Status)

		require.NoError(t, f.orchestrator.HandleNotification(ctx,
			signedNotification(intent.OrderID, "settlement", "204000.00")))
		p, err = f.store.GetPaymentByOrderID(ctx, intent.OrderID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentPaid, p.Status)
	})

	t.Run("refunded payment is immutable", func(t *testing.T) {
		p, err := f.store.GetPaymentByOrderID(ctx, intent.OrderID)
		require.NoError(t, err)
		p.Status = model.PaymentRefunded
		require.NoError(t, f.store.SavePayment(ctx, p))

		require.NoError(t, f.orchestrator.HandleNotification(ctx,
			signedNotification(intent.OrderID, "settlement", "204000.00")))

		p, err = f.store.GetPaymentByOrderID(ctx, intent.OrderID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentRefunded, p.Status)
	})
}
