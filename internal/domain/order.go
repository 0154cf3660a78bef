package domain

import "time"

// Shipping type of an order. Shopify order payloads only distinguish
// deliverable items from everything else; pickup detection existed for a
// prior platform integration and is kept in the enum for stored records.
const (
	ShippingTypeDelivery = "DELIVERY"
	ShippingTypePickup   = "PICKUP"
	ShippingTypeUnknown  = "UNKNOWN"
)

// ShippingRecord is an order that has not been fulfilled yet. One exists
// per (merchant, orderId); it is moved to an ActiveShipment on fulfillment.
type ShippingRecord struct {
	OrderID           string      `json:"orderId"`
	OrderNumber       int64       `json:"orderNumber"`
	Name              string      `json:"name,omitempty"`
	Platform          string      `json:"platform"`
	FulfillmentStatus string      `json:"fulfillmentStatus"`
	ShippingType      string      `json:"shippingType"`
	Buyer             Buyer       `json:"buyer"`
	Shipping          Shipping    `json:"shipping"`
	Items             []Item      `json:"items"`
	Total             Totals      `json:"total"`
	MatchFields       MatchFields `json:"matchFields"`
	CreatedAt         time.Time   `json:"createdAt"`
}

type Buyer struct {
	Email     string `json:"email,omitempty"`
	ContactID string `json:"contactId,omitempty"`
	Name      string `json:"name,omitempty"`
}

type Shipping struct {
	Address   Address      `json:"address"`
	Recipient Recipient    `json:"recipient"`
	Cost      ShippingCost `json:"cost"`
}

type Address struct {
	Street     string `json:"street,omitempty"`
	Apt        string `json:"apt,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

type Recipient struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type ShippingCost struct {
	Amount  float64 `json:"amount"`
	Tax     float64 `json:"tax"`
	TaxRate float64 `json:"taxRate"`
}

type Item struct {
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Weight   float64 `json:"weight,omitempty"`
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// MatchFields back fuzzy reconciliation against carts that never carried a
// direct order reference. Items with an empty SKU are excluded from SKUList.
type MatchFields struct {
	SKUList     []string `json:"skuList"`
	City        string   `json:"city,omitempty"`
	TotalAmount float64  `json:"totalAmount"`
}

// Fulfillment is the sub-object attached to a ShippingRecord when it becomes
// an active shipment.
type Fulfillment struct {
	ID        string            `json:"id"`
	Status    string            `json:"status,omitempty"`
	Company   string            `json:"company,omitempty"`
	Number    string            `json:"number,omitempty"`
	Numbers   []string          `json:"numbers,omitempty"`
	URL       string            `json:"url,omitempty"`
	URLs      []string          `json:"urls,omitempty"`
	CreatedAt string            `json:"createdAt,omitempty"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
	LineItems []FulfillmentItem `json:"lineItems,omitempty"`
}

type FulfillmentItem struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Quantity int    `json:"quantity"`
	SKU      string `json:"sku,omitempty"`
}

// FulfillmentEvent is a normalized fulfillments/create webhook. OrderNumber
// and Name are carried for the fallback lookups: the fulfillment webhook
// family does not always share an id space with orders/create.
type FulfillmentEvent struct {
	OrderID          string
	OrderNumber      int64
	Name             string
	DestinationPhone string
	Fulfillment      Fulfillment
}

// OrderUpdate is a normalized orders/updated webhook. Cancelled is true when
// the payload reports a null fulfillment status, which Shopify uses to
// signal a fulfillment cancellation.
type OrderUpdate struct {
	OrderID   string
	Cancelled bool
}
