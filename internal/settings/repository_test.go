package settings

import (
	"context"
	"testing"

	"whatsapp-notifier/internal/domain"
	"whatsapp-notifier/internal/store"
)

type stubStore struct {
	store.Store

	doc *store.Document
	err error
}

func (s *stubStore) Get(_ context.Context, _ store.Ref) (*store.Document, error) {
	return s.doc, s.err
}

func TestGet_MissingDocumentIsZero(t *testing.T) {
	repo := NewStoreRepo(&stubStore{err: domain.ErrNotFound})

	got, err := repo.Get(context.Background(), "shop-a")
	if err != nil {
		t.Fatalf("missing settings must not be an error: %v", err)
	}
	if got != (domain.Settings{}) {
		t.Fatalf("expected zero settings, got %+v", got)
	}
}

func TestGet_MapsFields(t *testing.T) {
	repo := NewStoreRepo(&stubStore{doc: &store.Document{Data: map[string]any{
		"order_approved":          true,
		"order_message":           "Thanks!",
		"order_scheduled_minutes": float64(0),
		"ship_orders":             true,
		"ship_tracking_message":   "Shipped!",
		"ship_scheduled_minutes":  float64(30),
	}}})

	got, err := repo.Get(context.Background(), "shop-a")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if !got.OrderApproved || got.OrderMessage != "Thanks!" {
		t.Fatalf("order settings wrong: %+v", got)
	}
	if _, delayed := got.OrderSchedule.Delay(); delayed {
		t.Fatalf("zero minutes must mean immediate")
	}
	delay, delayed := got.ShipSchedule.Delay()
	if !delayed || delay.Minutes() != 30 {
		t.Fatalf("expected 30m delay, got %v %v", delay, delayed)
	}
}
