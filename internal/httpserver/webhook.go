package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsapp-notifier/internal/domain"
	"whatsapp-notifier/internal/identity"
	"whatsapp-notifier/internal/store"
	"whatsapp-notifier/internal/webhook"
)

const (
	headerHMAC       = "X-Shopify-Hmac-Sha256"
	headerTopic      = "X-Shopify-Topic"
	headerShopDomain = "X-Shopify-Shop-Domain"
)

// lifecycleEngine is the slice of the reconciliation engine the handlers
// dispatch into.
type lifecycleEngine interface {
	OrderCreated(ctx context.Context, instanceID string, rec domain.ShippingRecord) error
	FulfillmentCreated(ctx context.Context, instanceID string, ev domain.FulfillmentEvent) error
	OrderCancelled(ctx context.Context, instanceID string, up domain.OrderUpdate) error
	CartCreated(ctx context.Context, instanceID, collection string, rec domain.CartRecord) error
	CheckoutUpdated(ctx context.Context, instanceID string, rec domain.CartRecord) error
}

type webhookHandler struct {
	engine lifecycleEngine
	secret string
	logger *log.Logger
}

// authenticate reads the raw body and checks the HMAC header against it.
// The body must be captured before any binding: the signature covers the
// exact bytes Shopify sent. On failure the request is already answered.
func (h *webhookHandler) authenticate(c *gin.Context) ([]byte, string, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, "", false
	}
	if !webhook.Verify(h.secret, body, c.GetHeader(headerHMAC)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthorized.Error()})
		return nil, "", false
	}
	instance := identity.NormalizeDomain(c.GetHeader(headerShopDomain))
	if instance == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing shop domain"})
		return nil, "", false
	}
	return body, instance, true
}

func (h *webhookHandler) ordersCreate(c *gin.Context) {
	body, instance, ok := h.authenticate(c)
	if !ok {
		return
	}
	rec, err := webhook.NormalizeOrder(body, timeNow())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.OrderCreated(c.Request.Context(), instance, rec); err != nil {
		h.fail(c, "orders/create", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "orderId": rec.OrderID})
}

func (h *webhookHandler) ordersUpdated(c *gin.Context) {
	body, instance, ok := h.authenticate(c)
	if !ok {
		return
	}
	up, err := webhook.NormalizeOrderUpdate(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !up.Cancelled {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "not a cancellation"})
		return
	}
	if err := h.engine.OrderCancelled(c.Request.Context(), instance, up); err != nil {
		h.fail(c, "orders/updated", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "orderId": up.OrderID})
}

func (h *webhookHandler) ordersFulfilled(c *gin.Context) {
	body, instance, ok := h.authenticate(c)
	if !ok {
		return
	}
	ev, err := webhook.NormalizeFulfillment(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.FulfillmentCreated(c.Request.Context(), instance, ev); err != nil {
		h.fail(c, "orders/fulfilled", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "orderId": ev.OrderID})
}

func (h *webhookHandler) cartsCreate(c *gin.Context) {
	h.storeCart(c, store.AbandonedCarts)
}

func (h *webhookHandler) checkoutsCreate(c *gin.Context) {
	h.storeCart(c, store.PendingCheckouts)
}

func (h *webhookHandler) storeCart(c *gin.Context, collection string) {
	body, instance, ok := h.authenticate(c)
	if !ok {
		return
	}
	rec, err := webhook.NormalizeCart(body, timeNow())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.CartCreated(c.Request.Context(), instance, collection, rec); err != nil {
		h.fail(c, "carts/create", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "cartId": rec.CartID})
}

func (h *webhookHandler) checkoutsUpdate(c *gin.Context) {
	body, instance, ok := h.authenticate(c)
	if !ok {
		return
	}
	rec, err := webhook.NormalizeCart(body, timeNow())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.CheckoutUpdated(c.Request.Context(), instance, rec); err != nil {
		h.fail(c, "checkouts/update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "cartId": rec.CartID})
}

// compliance acknowledges the mandatory GDPR webhooks. The actual data
// export/erasure runs in the merchant support workflow, not here; Shopify
// only requires a signed 200.
func (h *webhookHandler) compliance(c *gin.Context) {
	_, _, ok := h.authenticate(c)
	if !ok {
		return
	}
	topic := c.GetHeader(headerTopic)
	switch topic {
	case "customers/data_request", "customers/redact", "shop/redact":
		h.logger.Printf("compliance webhook %s acknowledged", topic)
	default:
		h.logger.Printf("unknown compliance topic %q acknowledged", topic)
	}
	c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "topic": topic})
}

func (h *webhookHandler) fail(c *gin.Context, operation string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no matching record"})
		return
	}
	h.logger.Printf("%s: %v", operation, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
