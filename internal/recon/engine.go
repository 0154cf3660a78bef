// Package recon is the order-lifecycle state machine. It reconciles
// normalized webhook events against the per-merchant collections: orders
// close matching abandoned carts, fulfillments move orders to active
// shipments, cancellations move them back.
package recon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"whatsapp-notifier/internal/domain"
	"whatsapp-notifier/internal/store"
)

// lifecycleStore is the slice of the document store the engine drives.
type lifecycleStore interface {
	Get(ctx context.Context, ref store.Ref) (*store.Document, error)
	Set(ctx context.Context, ref store.Ref, doc any, merge bool) error
	Delete(ctx context.Context, ref store.Ref) error
	Query(ctx context.Context, instance, collection, field, value string) ([]store.Document, error)
	Add(ctx context.Context, instance, collection string, doc any) (string, error)
	Union(ctx context.Context, ref store.Ref, field string, values ...string) error
	Increment(ctx context.Context, ref store.Ref, field string, delta int64) error
	Batch() store.Batch
}

type settingsReader interface {
	Get(ctx context.Context, instanceID string) (domain.Settings, error)
}

type enqueuer interface {
	EnqueueOrder(ctx context.Context, instanceID string, s domain.Settings, rec domain.ShippingRecord) (string, error)
	EnqueueTracking(ctx context.Context, instanceID string, s domain.Settings, orderNumber int64, f domain.Fulfillment, phoneCandidates ...string) (string, error)
}

type Engine struct {
	store    lifecycleStore
	settings settingsReader
	notify   enqueuer
	logger   *log.Logger
	now      func() time.Time
}

func New(s lifecycleStore, settings settingsReader, notify enqueuer, logger *log.Logger) *Engine {
	return &Engine{store: s, settings: settings, notify: notify, logger: logger, now: time.Now}
}

// NewWithClock is for tests that pin timestamps.
func NewWithClock(s lifecycleStore, settings settingsReader, notify enqueuer, logger *log.Logger, now func() time.Time) *Engine {
	e := New(s, settings, notify, logger)
	e.now = now
	return e
}

// OrderCreated upserts the shipping record, closes every abandoned cart and
// pending checkout matching the buyer, queues the order-confirmation
// notification when configured, and folds the order into the customer-club
// profile. Redelivery of the same payload converges to the same end state
// and never queues a second notification.
func (e *Engine) OrderCreated(ctx context.Context, instanceID string, rec domain.ShippingRecord) error {
	ref := store.Ref{Instance: instanceID, Collection: store.ShippingRecords, DocID: rec.OrderID}

	// A create redelivered after fulfillment must not resurrect the pending
	// record next to the active shipment; the order already went through the
	// whole create path once.
	activeRef := store.Ref{Instance: instanceID, Collection: store.ShippingActive, DocID: rec.OrderID}
	if _, err := e.store.Get(ctx, activeRef); err == nil {
		e.logger.Printf("order %s already fulfilled, create redelivery ignored", rec.OrderID)
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return e.fail(ctx, instanceID, "orders/create", err)
	}

	notified, err := e.alreadyNotified(ctx, ref)
	if err != nil {
		return e.fail(ctx, instanceID, "orders/create", err)
	}

	if err := e.store.Set(ctx, ref, rec, true); err != nil {
		return e.fail(ctx, instanceID, "orders/create", fmt.Errorf("upsert shipping record %s: %w", rec.OrderID, err))
	}

	if err := e.closeMatchingCarts(ctx, instanceID, rec.Buyer.Email, rec.Shipping.Recipient.Phone); err != nil {
		return e.fail(ctx, instanceID, "orders/create", err)
	}

	cfg, err := e.settings.Get(ctx, instanceID)
	if err != nil {
		return e.fail(ctx, instanceID, "orders/create", fmt.Errorf("read settings: %w", err))
	}
	if !notified {
		id, err := e.notify.EnqueueOrder(ctx, instanceID, cfg, rec)
		if err != nil {
			return e.fail(ctx, instanceID, "orders/create", fmt.Errorf("enqueue order notification: %w", err))
		}
		if id != "" {
			if err := e.store.Set(ctx, ref, map[string]any{"notifiedOrder": true}, true); err != nil {
				return e.fail(ctx, instanceID, "orders/create", err)
			}
			e.logger.Printf("queued order notification %s for order %s", id, rec.OrderID)
		}
	}

	if err := e.upsertCustomerProfile(ctx, instanceID, rec); err != nil {
		return e.fail(ctx, instanceID, "orders/create", err)
	}
	return nil
}

// closeMatchingCarts finds cart and checkout records whose customer email or
// phone matches the order and deletes them. Matches from the two queries are
// deduplicated by document id; deleting an already-deleted document is a
// no-op, so concurrent duplicate deliveries are safe.
func (e *Engine) closeMatchingCarts(ctx context.Context, instanceID, email, phone string) error {
	matched := map[store.Ref]struct{}{}
	for _, collection := range []string{store.AbandonedCarts, store.PendingCheckouts} {
		if email != "" {
			docs, err := e.store.Query(ctx, instanceID, collection, "customer.email", email)
			if err != nil {
				return fmt.Errorf("query %s by email: %w", collection, err)
			}
			for _, d := range docs {
				matched[d.Ref] = struct{}{}
			}
		}
		if phone != "" {
			docs, err := e.store.Query(ctx, instanceID, collection, "customer.phone", phone)
			if err != nil {
				return fmt.Errorf("query %s by phone: %w", collection, err)
			}
			for _, d := range docs {
				matched[d.Ref] = struct{}{}
			}
		}
	}
	for ref := range matched {
		if err := e.store.Delete(ctx, ref); err != nil {
			return fmt.Errorf("delete %s: %w", store.PathOf(ref), err)
		}
	}
	if len(matched) > 0 {
		e.logger.Printf("closed %d abandoned record(s) for %s", len(matched), instanceID)
	}
	return nil
}

func (e *Engine) upsertCustomerProfile(ctx context.Context, instanceID string, rec domain.ShippingRecord) error {
	phone := rec.Shipping.Recipient.Phone
	if phone == "" {
		return nil
	}
	ref := store.Ref{Instance: instanceID, Collection: store.AbandonedCustomers, DocID: phone}
	profile := map[string]any{
		"phone":    phone,
		"name":     rec.Shipping.Recipient.Name,
		"email":    rec.Buyer.Email,
		"address":  rec.Shipping.Address,
		"lastSeen": e.now(),
	}
	if err := e.store.Set(ctx, ref, profile, true); err != nil {
		return fmt.Errorf("upsert customer profile: %w", err)
	}
	if err := e.store.Union(ctx, ref, "orderIds", rec.OrderID); err != nil {
		return fmt.Errorf("append order id to customer profile: %w", err)
	}
	return nil
}

// FulfillmentCreated moves the shipping record to an active shipment in one
// atomic batch and queues the tracking notification. The record is looked up
// by order id first, then by order number and name: the fulfillment webhook
// family does not reliably share an id space with orders/create. A missing
// record is ErrNotFound and written nowhere; the platform retries.
func (e *Engine) FulfillmentCreated(ctx context.Context, instanceID string, ev domain.FulfillmentEvent) error {
	activeRef := store.Ref{Instance: instanceID, Collection: store.ShippingActive, DocID: ev.OrderID}

	data, recordRef, moved, err := e.resolveShippingRecord(ctx, instanceID, ev)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return e.fail(ctx, instanceID, "fulfillments/create", err)
	}

	if moved {
		activeRef = recordRef
	} else {
		data["fulfillment"] = ev.Fulfillment
		data["lastUpdated"] = e.now()
		b := e.store.Batch()
		b.Set(store.Ref{Instance: instanceID, Collection: store.ShippingActive, DocID: recordRef.DocID}, data, false)
		b.Delete(recordRef)
		if err := b.Commit(ctx); err != nil {
			return e.fail(ctx, instanceID, "fulfillments/create", fmt.Errorf("move order %s to active: %w", recordRef.DocID, err))
		}
		activeRef.DocID = recordRef.DocID
		e.logger.Printf("order %s moved to active shipments", recordRef.DocID)
	}

	if truthy(data["notifiedTracking"]) {
		return nil
	}
	cfg, err := e.settings.Get(ctx, instanceID)
	if err != nil {
		return e.fail(ctx, instanceID, "fulfillments/create", fmt.Errorf("read settings: %w", err))
	}
	orderNumber := int64(numberAt(data, "orderNumber"))
	if orderNumber == 0 {
		orderNumber = ev.OrderNumber
	}
	id, err := e.notify.EnqueueTracking(ctx, instanceID, cfg, orderNumber, ev.Fulfillment,
		ev.DestinationPhone, stringPath(data, "shipping", "recipient", "phone"))
	if err != nil {
		return e.fail(ctx, instanceID, "fulfillments/create", fmt.Errorf("enqueue tracking notification: %w", err))
	}
	if id != "" {
		if err := e.store.Set(ctx, activeRef, map[string]any{"notifiedTracking": true}, true); err != nil {
			return e.fail(ctx, instanceID, "fulfillments/create", err)
		}
		e.logger.Printf("queued tracking notification %s for order %s", id, activeRef.DocID)
	}
	return nil
}

// resolveShippingRecord locates the pending record a fulfillment refers to.
// moved reports that the order is already an active shipment, which happens
// when the platform redelivers a fulfillment webhook after a committed move.
func (e *Engine) resolveShippingRecord(ctx context.Context, instanceID string, ev domain.FulfillmentEvent) (data map[string]any, ref store.Ref, moved bool, err error) {
	ref = store.Ref{Instance: instanceID, Collection: store.ShippingRecords, DocID: ev.OrderID}
	doc, err := e.store.Get(ctx, ref)
	if err == nil {
		return doc.Data, ref, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, ref, false, err
	}

	if ev.OrderNumber != 0 {
		docs, qerr := e.store.Query(ctx, instanceID, store.ShippingRecords, "orderNumber", strconv.FormatInt(ev.OrderNumber, 10))
		if qerr != nil {
			return nil, ref, false, qerr
		}
		if len(docs) > 0 {
			return docs[0].Data, docs[0].Ref, false, nil
		}
	}
	if ev.Name != "" {
		docs, qerr := e.store.Query(ctx, instanceID, store.ShippingRecords, "name", ev.Name)
		if qerr != nil {
			return nil, ref, false, qerr
		}
		if len(docs) > 0 {
			return docs[0].Data, docs[0].Ref, false, nil
		}
	}

	activeRef := store.Ref{Instance: instanceID, Collection: store.ShippingActive, DocID: ev.OrderID}
	if active, aerr := e.store.Get(ctx, activeRef); aerr == nil {
		return active.Data, activeRef, true, nil
	} else if !errors.Is(aerr, domain.ErrNotFound) {
		return nil, ref, false, aerr
	}
	return nil, ref, false, domain.ErrNotFound
}

// OrderCancelled reverses a fulfillment: the active shipment moves back to
// shipping-records with the fulfillment sub-object cleared. It never creates
// a record from scratch; a missing active shipment is ErrNotFound.
func (e *Engine) OrderCancelled(ctx context.Context, instanceID string, up domain.OrderUpdate) error {
	if !up.Cancelled {
		return nil
	}
	activeRef := store.Ref{Instance: instanceID, Collection: store.ShippingActive, DocID: up.OrderID}
	doc, err := e.store.Get(ctx, activeRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return e.fail(ctx, instanceID, "orders/updated", err)
	}

	data := doc.Data
	delete(data, "fulfillment")
	// Cleared so a later re-fulfillment may notify again.
	delete(data, "notifiedTracking")
	data["fulfillmentStatus"] = "UNKNOWN"
	data["lastUpdated"] = e.now()

	b := e.store.Batch()
	b.Set(store.Ref{Instance: instanceID, Collection: store.ShippingRecords, DocID: up.OrderID}, data, false)
	b.Delete(activeRef)
	if err := b.Commit(ctx); err != nil {
		return e.fail(ctx, instanceID, "orders/updated", fmt.Errorf("move order %s back to pending: %w", up.OrderID, err))
	}
	e.logger.Printf("order %s moved back to shipping records", up.OrderID)
	return nil
}

// CartCreated stores cart/checkout activity and folds it into the abandoned
// customer profile keyed by phone. collection selects pending-checkouts or
// abandoned-carts depending on the webhook topic.
func (e *Engine) CartCreated(ctx context.Context, instanceID, collection string, rec domain.CartRecord) error {
	ref := store.Ref{Instance: instanceID, Collection: collection, DocID: rec.CartID}
	// Full overwrite: the record has not been reconciled yet.
	if err := e.store.Set(ctx, ref, rec, false); err != nil {
		return e.fail(ctx, instanceID, "carts/create", fmt.Errorf("store cart %s: %w", rec.CartID, err))
	}
	if rec.Customer.Phone == "" {
		// Stored but unmatchable; accepted, not an error.
		return nil
	}
	if err := e.recordAbandonment(ctx, instanceID, rec); err != nil {
		return e.fail(ctx, instanceID, "carts/create", err)
	}
	return nil
}

func (e *Engine) recordAbandonment(ctx context.Context, instanceID string, rec domain.CartRecord) error {
	address := rec.ShipTo
	if address == (domain.Address{}) {
		address = rec.Billing
	}
	ref := store.Ref{Instance: instanceID, Collection: store.AbandonedCustomers, DocID: rec.Customer.Phone}
	profile := map[string]any{
		"phone":    rec.Customer.Phone,
		"name":     rec.Customer.Name,
		"email":    rec.Customer.Email,
		"address":  address,
		"lastSeen": e.now(),
	}
	if err := e.store.Set(ctx, ref, profile, true); err != nil {
		return fmt.Errorf("upsert abandoned customer: %w", err)
	}
	if err := e.store.Union(ctx, ref, "abandonedCartIds", rec.CartID); err != nil {
		return fmt.Errorf("append cart id: %w", err)
	}
	if err := e.store.Increment(ctx, ref, "totalAbandoned", 1); err != nil {
		return fmt.Errorf("bump abandonment counter: %w", err)
	}
	return nil
}

// CheckoutUpdated merges the mutable fields of an in-flight checkout into
// both the pending-checkouts and abandoned-carts records. Merge-only: an
// update payload rarely carries the whole cart, and a full overwrite would
// clobber the fields it omits. The customer object is merged per field for
// the same reason; the store merge is shallow and would otherwise replace
// it wholesale.
func (e *Engine) CheckoutUpdated(ctx context.Context, instanceID string, rec domain.CartRecord) error {
	checkoutRef := store.Ref{Instance: instanceID, Collection: store.PendingCheckouts, DocID: rec.CartID}
	customer, err := e.mergedCustomer(ctx, checkoutRef, rec.Customer)
	if err != nil {
		return e.fail(ctx, instanceID, "checkouts/update", err)
	}
	partial := map[string]any{
		"customer":  customer,
		"totals":    rec.Totals,
		"updatedAt": e.now(),
	}
	if err := e.store.Set(ctx, checkoutRef, partial, true); err != nil {
		return e.fail(ctx, instanceID, "checkouts/update", fmt.Errorf("merge pending checkout %s: %w", rec.CartID, err))
	}

	cartRef := store.Ref{Instance: instanceID, Collection: store.AbandonedCarts, DocID: rec.CartID}
	customer, err = e.mergedCustomer(ctx, cartRef, rec.Customer)
	if err != nil {
		return e.fail(ctx, instanceID, "checkouts/update", err)
	}
	full := map[string]any{
		"cartId":      rec.CartID,
		"cartToken":   rec.CartToken,
		"abandonedAt": rec.AbandonedAt,
		"customer":    customer,
		"totals":      rec.Totals,
		"updatedAt":   e.now(),
	}
	if len(rec.Items) > 0 {
		full["items"] = rec.Items
	}
	if err := e.store.Set(ctx, cartRef, full, true); err != nil {
		return e.fail(ctx, instanceID, "checkouts/update", fmt.Errorf("merge abandoned cart %s: %w", rec.CartID, err))
	}
	return nil
}

// mergedCustomer overlays the non-empty fields of the update onto the
// customer object currently stored at ref. A missing document contributes
// nothing.
func (e *Engine) mergedCustomer(ctx context.Context, ref store.Ref, upd domain.CartCustomer) (map[string]any, error) {
	merged := map[string]any{}
	doc, err := e.store.Get(ctx, ref)
	if err == nil {
		if existing, ok := doc.Data["customer"].(map[string]any); ok {
			for k, v := range existing {
				merged[k] = v
			}
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("read %s: %w", store.PathOf(ref), err)
	}
	setIfPresent(merged, "email", upd.Email)
	setIfPresent(merged, "phone", upd.Phone)
	setIfPresent(merged, "name", upd.Name)
	setIfPresent(merged, "customerId", upd.CustomerID)
	return merged, nil
}

func setIfPresent(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func (e *Engine) alreadyNotified(ctx context.Context, ref store.Ref) (bool, error) {
	doc, err := e.store.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return truthy(doc.Data["notifiedOrder"]), nil
}

// fail records the failure in the merchant's errors collection for offline
// triage and passes the original error through. Recording is best-effort.
func (e *Engine) fail(ctx context.Context, instanceID, operation string, cause error) error {
	entry := map[string]any{
		"operation": operation,
		"error":     cause.Error(),
		"createdAt": e.now(),
	}
	if _, err := e.store.Add(ctx, instanceID, store.Errors, entry); err != nil {
		e.logger.Printf("record error for %s: %v", operation, err)
	}
	return cause
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}

func numberAt(data map[string]any, key string) float64 {
	f, _ := data[key].(float64)
	return f
}

func stringPath(data map[string]any, path ...string) string {
	current := data
	for i, key := range path {
		if i == len(path)-1 {
			s, _ := current[key].(string)
			return s
		}
		next, ok := current[key].(map[string]any)
		if !ok {
			return ""
		}
		current = next
	}
	return ""
}
