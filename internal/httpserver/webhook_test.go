package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"whatsapp-notifier/internal/domain"
	"whatsapp-notifier/internal/store"
	"whatsapp-notifier/internal/webhook"
)

const testSecret = "shpss_test_secret"

type stubEngine struct {
	err error

	orders       []domain.ShippingRecord
	fulfillments []domain.FulfillmentEvent
	cancels      []domain.OrderUpdate
	carts        map[string][]domain.CartRecord // collection -> records
	updates      []domain.CartRecord
	instances    []string
}

func (s *stubEngine) OrderCreated(_ context.Context, instanceID string, rec domain.ShippingRecord) error {
	s.instances = append(s.instances, instanceID)
	s.orders = append(s.orders, rec)
	return s.err
}

func (s *stubEngine) FulfillmentCreated(_ context.Context, instanceID string, ev domain.FulfillmentEvent) error {
	s.instances = append(s.instances, instanceID)
	s.fulfillments = append(s.fulfillments, ev)
	return s.err
}

func (s *stubEngine) OrderCancelled(_ context.Context, instanceID string, up domain.OrderUpdate) error {
	s.instances = append(s.instances, instanceID)
	s.cancels = append(s.cancels, up)
	return s.err
}

func (s *stubEngine) CartCreated(_ context.Context, instanceID, collection string, rec domain.CartRecord) error {
	s.instances = append(s.instances, instanceID)
	if s.carts == nil {
		s.carts = map[string][]domain.CartRecord{}
	}
	s.carts[collection] = append(s.carts[collection], rec)
	return s.err
}

func (s *stubEngine) CheckoutUpdated(_ context.Context, instanceID string, rec domain.CartRecord) error {
	s.instances = append(s.instances, instanceID)
	s.updates = append(s.updates, rec)
	return s.err
}

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestRouter(engine *stubEngine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return buildRouter(logDiscard(), nil, Deps{Engine: engine, WebhookSecret: testSecret})
}

func signedRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerHMAC, webhook.Sign(testSecret, []byte(body)))
	req.Header.Set(headerShopDomain, "My-Shop.myshopify.com")
	return req
}

func TestOrdersCreateHandler_Accepted(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine)

	body := `{"id": 100, "order_number": 1001, "total_price": "150.00",
		"shipping_address": {"first_name": "Jon", "phone": "0501234567"},
		"line_items": [{"title": "Shirt", "sku": "X1", "quantity": 2, "price": "75.00"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/orders/create", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(engine.orders) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(engine.orders))
	}
	if engine.orders[0].OrderID != "100" {
		t.Fatalf("unexpected order id %q", engine.orders[0].OrderID)
	}
	if engine.instances[0] != "my-shop-myshopify-com" {
		t.Fatalf("unexpected instance %q", engine.instances[0])
	}
}

func TestOrdersCreateHandler_BadSignature(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine)

	body := `{"id": 100}`
	req := signedRequest("/webhooks/orders/create", body)
	req.Header.Set(headerHMAC, webhook.Sign(testSecret, []byte(body+" ")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(engine.orders) != 0 {
		t.Fatalf("engine must not run on a bad signature")
	}
}

func TestOrdersCreateHandler_Malformed(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/orders/create", `{"line_items": []}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(engine.orders) != 0 {
		t.Fatalf("engine must not run on a malformed payload")
	}
}

func TestOrdersCreateHandler_MissingShopDomain(t *testing.T) {
	router := newTestRouter(&stubEngine{})

	req := signedRequest("/webhooks/orders/create", `{"id": 100}`)
	req.Header.Del(headerShopDomain)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOrdersFulfilledHandler_NoMatchingRecord(t *testing.T) {
	engine := &stubEngine{err: domain.ErrNotFound}
	router := newTestRouter(engine)

	body := `{"order_id": 999, "fulfillment": {"id": 1, "tracking_number": "TRK1"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/orders/fulfilled", body))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOrdersFulfilledHandler_StoreFailure(t *testing.T) {
	engine := &stubEngine{err: errors.New("boom")}
	router := newTestRouter(engine)

	body := `{"order_id": 100, "fulfillment": {"id": 1}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/orders/fulfilled", body))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestOrdersUpdatedHandler_NotACancellation(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/orders/updated", `{"id": 100, "fulfillment_status": "fulfilled"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not a cancellation") {
		t.Fatalf("expected ignore reason, got %s", rec.Body.String())
	}

	// Edits that omit fulfillment_status entirely are ignored too.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/orders/updated", `{"id": 100, "note": "address edited"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(engine.cancels) != 0 {
		t.Fatalf("engine must not run for a non-cancellation update")
	}
}

func TestOrdersUpdatedHandler_Cancellation(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/orders/updated", `{"id": 100, "fulfillment_status": null}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(engine.cancels) != 1 || !engine.cancels[0].Cancelled {
		t.Fatalf("expected one cancellation dispatch, got %+v", engine.cancels)
	}
}

func TestCartAndCheckoutHandlers_Collections(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine)

	body := `{"id": "cart-1", "customer": {"phone": "0501234567"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/carts/create", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("carts/create: expected 200, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/checkouts/create", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("checkouts/create: expected 200, got %d", rec.Code)
	}

	if len(engine.carts[store.AbandonedCarts]) != 1 {
		t.Fatalf("expected cart stored in abandoned carts, got %+v", engine.carts)
	}
	if len(engine.carts[store.PendingCheckouts]) != 1 {
		t.Fatalf("expected checkout stored in pending checkouts, got %+v", engine.carts)
	}
}

func TestCheckoutsUpdateHandler(t *testing.T) {
	engine := &stubEngine{}
	router := newTestRouter(engine)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest("/webhooks/checkouts/update", `{"id": "cart-1", "total_price": "99.00"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(engine.updates) != 1 || engine.updates[0].CartID != "cart-1" {
		t.Fatalf("expected one merge dispatch, got %+v", engine.updates)
	}
}

func TestComplianceHandler(t *testing.T) {
	router := newTestRouter(&stubEngine{})

	req := signedRequest("/webhooks/compliance", `{"shop_domain": "my-shop.myshopify.com"}`)
	req.Header.Set(headerTopic, "customers/redact")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "customers/redact") {
		t.Fatalf("expected topic echoed, got %s", rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(&stubEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: expected 503, got %d", rec.Code)
	}
}
