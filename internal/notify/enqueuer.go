// Package notify decides whether a lifecycle event produces a customer
// notification and appends it to the outbound queue. It never sends: the
// delivery worker owns everything after the append.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"whatsapp-notifier/internal/domain"
	"whatsapp-notifier/internal/identity"
	"whatsapp-notifier/internal/store"
)

// queueStore is the slice of the document store the enqueuer needs.
type queueStore interface {
	Add(ctx context.Context, instance, collection string, doc any) (string, error)
}

type Enqueuer struct {
	store queueStore
	now   func() time.Time
}

func New(store queueStore) *Enqueuer {
	return &Enqueuer{store: store, now: time.Now}
}

// NewWithClock is for tests that pin the timestamp.
func NewWithClock(store queueStore, now func() time.Time) *Enqueuer {
	return &Enqueuer{store: store, now: now}
}

// EnqueueOrder queues an order-confirmation message. It returns the queue
// entry id, or "" when a precondition did not hold: the flag disabled, the
// template empty, or no formattable phone. Those are silent no-ops, not
// errors.
func (e *Enqueuer) EnqueueOrder(ctx context.Context, instanceID string, s domain.Settings, rec domain.ShippingRecord) (string, error) {
	if !s.OrderApproved || s.OrderMessage == "" {
		return "", nil
	}
	phone := identity.FormatPhone(rec.Shipping.Recipient.Phone)
	if phone == "" {
		return "", nil
	}
	entry := domain.NotificationEntry{
		ClientID:        instanceID,
		Number:          phone,
		Message:         buildMessage(s.OrderMessage, "", "", rec.OrderNumber),
		TransactionType: domain.TransactionOrder,
		OrderNumber:     rec.OrderNumber,
		CreatedAt:       e.now(),
	}
	return e.append(ctx, instanceID, entry, s.OrderSchedule)
}

// EnqueueTracking queues a shipment-tracking message for a fulfilled order.
// phoneCandidates are tried in order; the first formattable one wins.
func (e *Enqueuer) EnqueueTracking(ctx context.Context, instanceID string, s domain.Settings, orderNumber int64, f domain.Fulfillment, phoneCandidates ...string) (string, error) {
	if !s.ShipOrders || s.ShipTrackingMessage == "" {
		return "", nil
	}
	var phone string
	for _, c := range phoneCandidates {
		if phone = identity.FormatPhone(c); phone != "" {
			break
		}
	}
	if phone == "" {
		return "", nil
	}
	entry := domain.NotificationEntry{
		ClientID:        instanceID,
		Number:          phone,
		Message:         buildMessage(s.ShipTrackingMessage, f.Number, f.URL, orderNumber),
		TransactionType: domain.TransactionTracking,
		OrderNumber:     orderNumber,
		TrackingNumber:  f.Number,
		TrackingURL:     f.URL,
		CreatedAt:       e.now(),
	}
	return e.append(ctx, instanceID, entry, s.ShipSchedule)
}

func (e *Enqueuer) append(ctx context.Context, instanceID string, entry domain.NotificationEntry, schedule domain.Schedule) (string, error) {
	collection := store.NotificationQueue
	if delay, delayed := schedule.Delay(); delayed {
		sendAfter := e.now().Add(delay)
		entry.SendAfter = &sendAfter
		collection = store.NotificationScheduled
	}
	return e.store.Add(ctx, instanceID, collection, entry)
}

// buildMessage assembles the outbound text: template first, then tracking
// number, tracking link and order number lines, each only when present.
func buildMessage(template, trackingNumber, trackingURL string, orderNumber int64) string {
	lines := []string{template}
	if trackingNumber != "" {
		lines = append(lines, fmt.Sprintf("Tracking number: %s", trackingNumber))
	}
	if trackingURL != "" {
		lines = append(lines, fmt.Sprintf("Tracking link: %s", trackingURL))
	}
	if orderNumber != 0 {
		lines = append(lines, fmt.Sprintf("Order number: %d", orderNumber))
	}
	return strings.Join(lines, "\n")
}
