package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"whatsapp-notifier/internal/domain"
)

type stubQueue struct {
	adds   []addCall
	addErr error
	nextID string
}

type addCall struct {
	instance   string
	collection string
	entry      domain.NotificationEntry
}

func (s *stubQueue) Add(_ context.Context, instance, collection string, doc any) (string, error) {
	entry, _ := doc.(domain.NotificationEntry)
	s.adds = append(s.adds, addCall{instance: instance, collection: collection, entry: entry})
	if s.nextID == "" {
		s.nextID = "queued-1"
	}
	return s.nextID, s.addErr
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testRecord() domain.ShippingRecord {
	return domain.ShippingRecord{
		OrderID:     "100",
		OrderNumber: 1234,
		Shipping: domain.Shipping{
			Recipient: domain.Recipient{Phone: "0501234567"},
		},
	}
}

func TestEnqueueOrder_Immediate(t *testing.T) {
	q := &stubQueue{}
	e := NewWithClock(q, func() time.Time { return fixedNow })

	s := domain.Settings{OrderApproved: true, OrderMessage: "Thanks!"}
	id, err := e.EnqueueOrder(context.Background(), "shop-a", s, testRecord())
	if err != nil {
		t.Fatalf("EnqueueOrder: %v", err)
	}
	if id == "" {
		t.Fatalf("expected an entry id")
	}
	if len(q.adds) != 1 {
		t.Fatalf("expected 1 append, got %d", len(q.adds))
	}
	got := q.adds[0]
	if got.collection != "notification-queue" {
		t.Fatalf("expected immediate partition, got %q", got.collection)
	}
	if !strings.HasPrefix(got.entry.Message, "Thanks!") {
		t.Fatalf("unexpected message %q", got.entry.Message)
	}
	if got.entry.Number != "+972501234567" {
		t.Fatalf("unexpected number %q", got.entry.Number)
	}
	if got.entry.Sent {
		t.Fatalf("entries must be created unsent")
	}
	if got.entry.TransactionType != domain.TransactionOrder {
		t.Fatalf("unexpected transaction type %q", got.entry.TransactionType)
	}
	if got.entry.SendAfter != nil {
		t.Fatalf("immediate entries must not carry sendAfter")
	}
}

func TestEnqueueOrder_Scheduled(t *testing.T) {
	q := &stubQueue{}
	e := NewWithClock(q, func() time.Time { return fixedNow })

	s := domain.Settings{
		OrderApproved: true,
		OrderMessage:  "Thanks!",
		OrderSchedule: domain.DelayedBy(30 * time.Minute),
	}
	if _, err := e.EnqueueOrder(context.Background(), "shop-a", s, testRecord()); err != nil {
		t.Fatalf("EnqueueOrder: %v", err)
	}
	got := q.adds[0]
	if got.collection != "notification-scheduled" {
		t.Fatalf("expected scheduled partition, got %q", got.collection)
	}
	if got.entry.SendAfter == nil || !got.entry.SendAfter.Equal(fixedNow.Add(30*time.Minute)) {
		t.Fatalf("unexpected sendAfter %v", got.entry.SendAfter)
	}
}

func TestEnqueueOrder_PreconditionNoOps(t *testing.T) {
	cases := []struct {
		name string
		s    domain.Settings
		rec  domain.ShippingRecord
	}{
		{"flag off", domain.Settings{OrderMessage: "Thanks!"}, testRecord()},
		{"empty template", domain.Settings{OrderApproved: true}, testRecord()},
		{"no phone", domain.Settings{OrderApproved: true, OrderMessage: "Thanks!"}, domain.ShippingRecord{OrderNumber: 1}},
	}
	for _, tc := range cases {
		q := &stubQueue{}
		e := NewWithClock(q, func() time.Time { return fixedNow })
		id, err := e.EnqueueOrder(context.Background(), "shop-a", tc.s, tc.rec)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if id != "" || len(q.adds) != 0 {
			t.Fatalf("%s: expected silent no-op", tc.name)
		}
	}
}

func TestEnqueueTracking_MessageFieldOrder(t *testing.T) {
	q := &stubQueue{}
	e := NewWithClock(q, func() time.Time { return fixedNow })

	s := domain.Settings{ShipOrders: true, ShipTrackingMessage: "On the way!"}
	f := domain.Fulfillment{Number: "ABC123", URL: "https://track/ABC123"}
	if _, err := e.EnqueueTracking(context.Background(), "shop-a", s, 1234, f, "", "0501234567"); err != nil {
		t.Fatalf("EnqueueTracking: %v", err)
	}
	got := q.adds[0].entry
	want := "On the way!\nTracking number: ABC123\nTracking link: https://track/ABC123\nOrder number: 1234"
	if got.Message != want {
		t.Fatalf("unexpected message %q", got.Message)
	}
	if got.TrackingNumber != "ABC123" || got.TrackingURL != "https://track/ABC123" {
		t.Fatalf("tracking fields missing from entry %+v", got)
	}
}

func TestEnqueueTracking_OmitsAbsentFields(t *testing.T) {
	q := &stubQueue{}
	e := NewWithClock(q, func() time.Time { return fixedNow })

	s := domain.Settings{ShipOrders: true, ShipTrackingMessage: "On the way!"}
	if _, err := e.EnqueueTracking(context.Background(), "shop-a", s, 0, domain.Fulfillment{}, "0501234567"); err != nil {
		t.Fatalf("EnqueueTracking: %v", err)
	}
	if got := q.adds[0].entry.Message; got != "On the way!" {
		t.Fatalf("expected bare template, got %q", got)
	}
}
