// Package notification delivers reservation lifecycle events to users via web
// push. Delivery is fire-and-forget: the business layers dispatch and move on.
package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"space-booking-backend/internal/model"
)

// EventKind identifies a lifecycle event.
type EventKind string

const (
	EventReservationCreated  EventKind = "reservation_created"
	EventReservationApproved EventKind = "reservation_approved"
	EventReservationRejected EventKind = "reservation_rejected"
	EventPaymentSettled      EventKind = "payment_settled"
)

// Event is a lifecycle notification addressed to a user.
type Event struct {
	Kind          EventKind
	ReservationID uuid.UUID
	UserID        *uuid.UUID
	Message       string
}

// Dispatcher accepts lifecycle events for delivery.
type Dispatcher interface {
	Dispatch(event Event)
}

// Sender defines the interface for sending a single web push message.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans events out to a fixed set of delivery workers.
type WorkerPool struct {
	size    int
	jobs    chan Event
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a worker pool of the given size.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size*8),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notification worker %d started", id)
	for {
		select {
		case event := <-wp.jobs:
			wp.deliver(ctx, event)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch enqueues an event. A full queue drops the event rather than block
// the caller; notifications are best-effort.
func (wp *WorkerPool) Dispatch(event Event) {
	select {
	case wp.jobs <- event:
	default:
		log.Printf("notification queue full, dropping %s for reservation %s", event.Kind, event.ReservationID)
	}
}

// SetSender swaps the delivery backend; used by tests.
func (wp *WorkerPool) SetSender(s Sender) {
	wp.sender = s
}

// deliver fetches the user's push subscriptions and sends the event to each.
func (wp *WorkerPool) deliver(ctx context.Context, event Event) {
	if event.UserID == nil {
		return
	}

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Where("user_id = ?", *event.UserID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for user %s: %v", *event.UserID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload := []byte(fmt.Sprintf(`{"kind":%q,"reservation_id":%q,"message":%q}`,
		event.Kind, event.ReservationID, event.Message))
	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

// send pushes one message and prunes the subscription if the endpoint is gone.
func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
