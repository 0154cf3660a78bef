package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"whatsapp-notifier/internal/domain"
	"whatsapp-notifier/internal/store"
)

const demoInstance = "demo-shop-myshopify-com"

// Apply inserts a demo merchant with notification settings and a couple of
// abandoned records for manual testing. Idempotent: documents are keyed and
// upserted.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	documents := store.NewPostgres(pool)

	settings := map[string]any{
		"order_approved":          true,
		"order_message":           "Thanks for your order! We'll let you know when it ships.",
		"order_scheduled_minutes": 0,
		"ship_orders":             true,
		"ship_tracking_message":   "Your order is on the way!",
		"ship_scheduled_minutes":  30,
	}
	ref := store.Ref{Instance: demoInstance, Collection: store.Settings, DocID: "notifications"}
	if err := documents.Set(ctx, ref, settings, true); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	cart := domain.CartRecord{
		CartID: "demo-cart-1",
		Customer: domain.CartCustomer{
			Email: "demo@example.com",
			Phone: "+972501234567",
			Name:  "Demo Customer",
		},
		Items: []domain.Item{
			{Name: "Demo T-Shirt", SKU: "SKU-DEMO-TSHIRT", Quantity: 1, Price: 79.9},
		},
		Totals:    domain.CartTotals{Subtotal: 79.9, Total: 79.9, Currency: "ILS"},
		CreatedAt: time.Now().UTC(),
	}
	cartRef := store.Ref{Instance: demoInstance, Collection: store.AbandonedCarts, DocID: cart.CartID}
	if err := documents.Set(ctx, cartRef, cart, false); err != nil {
		return fmt.Errorf("seed abandoned cart: %w", err)
	}

	checkout := domain.CartRecord{
		CartID: "demo-checkout-1",
		Customer: domain.CartCustomer{
			Email: "demo2@example.com",
			Name:  "Second Customer",
		},
		Items: []domain.Item{
			{Name: "Demo Mug", SKU: "SKU-DEMO-MUG", Quantity: 2, Price: 39.9},
		},
		Totals:    domain.CartTotals{Subtotal: 79.8, Total: 79.8, Currency: "ILS"},
		CreatedAt: time.Now().UTC(),
	}
	checkoutRef := store.Ref{Instance: demoInstance, Collection: store.PendingCheckouts, DocID: checkout.CartID}
	if err := documents.Set(ctx, checkoutRef, checkout, false); err != nil {
		return fmt.Errorf("seed pending checkout: %w", err)
	}

	return nil
}
