// Package settings reads the per-merchant notification configuration. The
// admin UI owns writes; this service treats the document as read-only.
package settings

import (
	"context"
	"errors"

	"whatsapp-notifier/internal/domain"
	"whatsapp-notifier/internal/store"
)

// NotificationsDoc is the well-known settings document id per merchant.
const NotificationsDoc = "notifications"

type Repository interface {
	// Get returns the merchant's settings. A merchant with no settings
	// document gets the zero value: every notification flag off.
	Get(ctx context.Context, instanceID string) (domain.Settings, error)
}

type storeRepo struct {
	store store.Store
}

func NewStoreRepo(s store.Store) Repository {
	return &storeRepo{store: s}
}

func (r *storeRepo) Get(ctx context.Context, instanceID string) (domain.Settings, error) {
	doc, err := r.store.Get(ctx, store.Ref{
		Instance:   instanceID,
		Collection: store.Settings,
		DocID:      NotificationsDoc,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Settings{}, nil
		}
		return domain.Settings{}, err
	}
	return fromDocument(doc.Data), nil
}

func fromDocument(data map[string]any) domain.Settings {
	return domain.Settings{
		OrderApproved:       boolAt(data, "order_approved"),
		OrderMessage:        stringAt(data, "order_message"),
		OrderSchedule:       domain.ScheduleFromMinutes(intAt(data, "order_scheduled_minutes")),
		ShipOrders:          boolAt(data, "ship_orders"),
		ShipTrackingMessage: stringAt(data, "ship_tracking_message"),
		ShipSchedule:        domain.ScheduleFromMinutes(intAt(data, "ship_scheduled_minutes")),
	}
}

func boolAt(data map[string]any, key string) bool {
	v, _ := data[key].(bool)
	return v
}

func stringAt(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

func intAt(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
