package domain

import "time"

// CartRecord is a cart or checkout captured before an order completed. The
// same shape backs both the abandoned-carts and pending-checkouts
// collections; which one a record lands in depends on the webhook topic.
type CartRecord struct {
	CartID      string       `json:"cartId"`
	CartToken   string       `json:"cartToken,omitempty"`
	AbandonedAt string       `json:"abandonedAt,omitempty"`
	Customer    CartCustomer `json:"customer"`
	Billing     Address      `json:"billingAddress"`
	ShipTo      Address      `json:"shippingAddress"`
	Items       []Item       `json:"items"`
	Totals      CartTotals   `json:"totals"`
	CheckoutURL string       `json:"checkoutUrl,omitempty"`
	Note        string       `json:"note,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type CartCustomer struct {
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Name       string `json:"name,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
}

type CartTotals struct {
	Subtotal float64 `json:"subtotal"`
	Total    float64 `json:"total"`
	Taxes    float64 `json:"taxes"`
	Currency string  `json:"currency,omitempty"`
}
