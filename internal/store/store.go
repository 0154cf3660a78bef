// Package store exposes the per-merchant document collections as a keyed
// document store: get/set/merge/delete/query/add plus an atomic batch for
// cross-collection moves. Paths follow merchant/{instanceId}/{collection}/{docId}.
package store

import "context"

// Collection names owned by this service, one set per merchant instance.
const (
	PendingCheckouts      = "pending-checkouts"
	AbandonedCarts        = "abandoned-carts"
	AbandonedCustomers    = "abandoned-customers"
	ShippingRecords       = "shipping-records"
	ShippingActive        = "shipping-active"
	Errors                = "errors"
	NotificationQueue     = "notification-queue"
	NotificationScheduled = "notification-scheduled"
	Settings              = "settings"
)

// Ref addresses one document.
type Ref struct {
	Instance   string
	Collection string
	DocID      string
}

// Document is a stored document with its address. Data is the decoded JSON
// body; nested objects decode to map[string]any.
type Document struct {
	Ref  Ref
	Data map[string]any
}

// Store is the document-store contract the reconciliation engine runs
// against. Implementations must make Set with merge an upsert, Delete of a
// missing document a no-op, and Batch commits atomic.
type Store interface {
	// Get returns the document at ref, or domain.ErrNotFound.
	Get(ctx context.Context, ref Ref) (*Document, error)
	// Set writes doc at ref. With merge, existing top-level fields not
	// present in doc are preserved; without, the document is replaced.
	Set(ctx context.Context, ref Ref, doc any, merge bool) error
	// Delete removes the document at ref if it exists.
	Delete(ctx context.Context, ref Ref) error
	// Query returns the documents in a collection whose field equals value.
	// Nested fields are addressed with a dotted path ("customer.email").
	Query(ctx context.Context, instance, collection, field, value string) ([]Document, error)
	// Add inserts doc under a generated id and returns it.
	Add(ctx context.Context, instance, collection string, doc any) (string, error)
	// Union appends values to an array field, deduplicating, without
	// rewriting the rest of the document. The document must exist.
	Union(ctx context.Context, ref Ref, field string, values ...string) error
	// Increment atomically adds delta to a numeric field.
	Increment(ctx context.Context, ref Ref, field string, delta int64) error
	// Batch starts a queued write set committed atomically: a reader never
	// observes a partial batch and a crash cannot apply one half of it.
	Batch() Batch
}

// Batch queues writes for a single atomic commit.
type Batch interface {
	Set(ref Ref, doc any, merge bool)
	Delete(ref Ref)
	Commit(ctx context.Context) error
}
