// Package webhook verifies and normalizes inbound Shopify webhooks. The
// normalizer is pure: it maps the loose platform payloads into the canonical
// record shapes with explicit per-field defaults, so the reconciliation
// engine never touches raw payload fields.
package webhook

import (
	"encoding/json"
	"strings"
	"time"

	"whatsapp-notifier/internal/domain"
	"whatsapp-notifier/internal/identity"
)

const platformTag = "SHOPIFY"

// NormalizeOrder maps an orders/create payload to a ShippingRecord. The
// order id is the only required field; business fields default to zero or
// empty when absent.
func NormalizeOrder(raw []byte, now time.Time) (domain.ShippingRecord, error) {
	var p orderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.ShippingRecord{}, domain.ErrMalformedPayload
	}
	orderID := firstID(p.ID, p.OrderID)
	if orderID == "" {
		return domain.ShippingRecord{}, domain.ErrMalformedPayload
	}

	addr := pickAddress(p.ShippingAddress, p.BillingAddress)
	items := normalizeItems(p.LineItems)

	status := "UNKNOWN"
	if p.FulfillmentStatus != nil && *p.FulfillmentStatus != "" {
		status = *p.FulfillmentStatus
	}

	shippingType := domain.ShippingTypeUnknown
	for _, li := range p.LineItems {
		if li.RequiresShipping {
			shippingType = domain.ShippingTypeDelivery
			break
		}
	}

	var shippingCost float64
	for _, sl := range p.ShippingLines {
		shippingCost += float64(sl.Price)
	}
	var tax, taxRate float64
	if len(p.TaxLines) > 0 {
		tax = float64(p.TaxLines[0].Price)
		taxRate = p.TaxLines[0].Rate
	}

	var contactID string
	var customerPhone string
	if p.Customer != nil {
		contactID = p.Customer.ID.String()
		customerPhone = p.Customer.Phone
	}

	return domain.ShippingRecord{
		OrderID:           orderID,
		OrderNumber:       p.OrderNumber,
		Name:              p.Name,
		Platform:          platformTag,
		FulfillmentStatus: status,
		ShippingType:      shippingType,
		Buyer: domain.Buyer{
			Email:     p.Email,
			ContactID: contactID,
			Name:      recipientName(p.BillingAddress, p.ShippingAddress),
		},
		Shipping: domain.Shipping{
			Address: addr,
			Recipient: domain.Recipient{
				Name: recipientName(p.ShippingAddress, p.BillingAddress),
				Phone: firstPhone(
					addressPhone(p.ShippingAddress),
					addressPhone(p.BillingAddress),
					customerPhone,
					p.Phone,
				),
			},
			Cost: domain.ShippingCost{Amount: shippingCost, Tax: tax, TaxRate: taxRate},
		},
		Items: items,
		Total: domain.Totals{
			Subtotal: float64(p.SubtotalPrice),
			Shipping: shippingCost,
			Total:    float64(p.TotalPrice),
		},
		MatchFields: domain.MatchFields{
			SKUList:     skuList(items),
			City:        addr.City,
			TotalAmount: float64(p.TotalPrice),
		},
		CreatedAt: now,
	}, nil
}

// NormalizeCart maps a carts/create, checkouts/create or checkouts/update
// payload to a CartRecord.
func NormalizeCart(raw []byte, now time.Time) (domain.CartRecord, error) {
	var p cartPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.CartRecord{}, domain.ErrMalformedPayload
	}
	cartID := p.ID.String()
	if cartID == "" {
		return domain.CartRecord{}, domain.ErrMalformedPayload
	}

	var customerEmail, customerPhone, customerID string
	if p.Customer != nil {
		customerEmail = p.Customer.Email
		customerPhone = p.Customer.Phone
		customerID = p.Customer.ID.String()
	}
	email := p.Email
	if email == "" {
		email = customerEmail
	}

	token := p.Token
	if token == "" {
		token = p.CartToken
	}

	abandonedAt := p.UpdatedAt
	if abandonedAt == "" {
		abandonedAt = now.Format(time.RFC3339)
	}

	return domain.CartRecord{
		CartID:      cartID,
		CartToken:   token,
		AbandonedAt: abandonedAt,
		Customer: domain.CartCustomer{
			Email: email,
			// Billing phone first: checkout payloads fill it earliest.
			Phone: firstPhone(
				addressPhone(p.BillingAddress),
				addressPhone(p.ShippingAddress),
				customerPhone,
				p.Phone,
			),
			Name:       recipientName(p.BillingAddress, p.ShippingAddress),
			CustomerID: customerID,
		},
		Billing:     normalizeAddress(p.BillingAddress),
		ShipTo:      normalizeAddress(p.ShippingAddress),
		Items:       normalizeItems(p.LineItems),
		Totals: domain.CartTotals{
			Subtotal: float64(p.SubtotalPrice),
			Total:    float64(p.TotalPrice),
			Taxes:    float64(p.TotalTax),
			Currency: p.Currency,
		},
		CheckoutURL: p.CheckoutURL,
		Note:        p.Note,
		CreatedAt:   now,
	}, nil
}

// NormalizeFulfillment maps a fulfillments/create payload to a
// FulfillmentEvent. The fulfillment may arrive nested under "fulfillment",
// as the first element of "fulfillments", or flattened at the top level.
func NormalizeFulfillment(raw []byte) (domain.FulfillmentEvent, error) {
	var p fulfillmentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.FulfillmentEvent{}, domain.ErrMalformedPayload
	}

	var f fulfillmentInfo
	switch {
	case p.Fulfillment != nil:
		f = *p.Fulfillment
	case len(p.Fulfillments) > 0:
		f = p.Fulfillments[0]
	case p.OrderID.String() != "":
		// Flat shape: the payload itself is the fulfillment and "id" is the
		// fulfillment id, not the order id.
		f = fulfillmentInfo{
			ID:              p.ID,
			Status:          p.Status,
			TrackingCompany: p.TrackingCompany,
			TrackingNumber:  p.TrackingNumber,
			TrackingNumbers: p.TrackingNumbers,
			TrackingURL:     p.TrackingURL,
			TrackingURLs:    p.TrackingURLs,
			LineItems:       p.LineItems,
			CreatedAt:       p.CreatedAt,
			UpdatedAt:       p.UpdatedAt,
		}
	default:
		return domain.FulfillmentEvent{}, domain.ErrMalformedPayload
	}
	if f.ID.String() == "" {
		return domain.FulfillmentEvent{}, domain.ErrMalformedPayload
	}

	orderID := firstID(p.OrderID, p.ID)
	if orderID == "" {
		return domain.FulfillmentEvent{}, domain.ErrMalformedPayload
	}

	lineItems := make([]domain.FulfillmentItem, 0, len(f.LineItems))
	for _, li := range f.LineItems {
		lineItems = append(lineItems, domain.FulfillmentItem{
			ID:       li.ID.String(),
			Title:    firstNonEmpty(li.Title, li.Name),
			Quantity: li.Quantity,
			SKU:      li.SKU,
		})
	}

	return domain.FulfillmentEvent{
		OrderID:          orderID,
		OrderNumber:      p.OrderNumber,
		Name:             p.Name,
		DestinationPhone: addressPhone(p.Destination),
		Fulfillment: domain.Fulfillment{
			ID:        f.ID.String(),
			Status:    f.Status,
			Company:   f.TrackingCompany,
			Number:    f.TrackingNumber.String(),
			Numbers:   f.TrackingNumbers,
			URL:       f.TrackingURL,
			URLs:      f.TrackingURLs,
			CreatedAt: f.CreatedAt,
			UpdatedAt: f.UpdatedAt,
			LineItems: lineItems,
		},
	}, nil
}

// NormalizeOrderUpdate maps an orders/updated payload. An explicit
// fulfillment_status null on a previously fulfilled order is the
// cancellation signal; a payload that omits the field is an unrelated edit
// and is acknowledged without action.
func NormalizeOrderUpdate(raw []byte) (domain.OrderUpdate, error) {
	var p orderUpdatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.OrderUpdate{}, domain.ErrMalformedPayload
	}
	orderID := firstID(p.ID, p.OrderID)
	if orderID == "" {
		return domain.OrderUpdate{}, domain.ErrMalformedPayload
	}
	return domain.OrderUpdate{
		OrderID:   orderID,
		Cancelled: p.FulfillmentStatus.explicitNull(),
	}, nil
}

func normalizeItems(lines []lineItem) []domain.Item {
	items := make([]domain.Item, 0, len(lines))
	for _, li := range lines {
		sku := li.SKU
		if sku == "" {
			sku = li.VariantID.String()
		}
		qty := li.Quantity
		if qty == 0 {
			qty = 1
		}
		items = append(items, domain.Item{
			Name:     firstNonEmpty(li.Title, li.Name),
			SKU:      sku,
			Quantity: qty,
			Price:    float64(li.Price),
			Weight:   li.Grams / 1000,
		})
	}
	return items
}

// skuList excludes items whose SKU could not be resolved; an empty SKU would
// make fuzzy matching match everything.
func skuList(items []domain.Item) []string {
	skus := make([]string, 0, len(items))
	for _, it := range items {
		if it.SKU != "" {
			skus = append(skus, it.SKU)
		}
	}
	return skus
}

func pickAddress(shipping, billing *addressInfo) domain.Address {
	if shipping != nil {
		return normalizeAddress(shipping)
	}
	return normalizeAddress(billing)
}

func normalizeAddress(a *addressInfo) domain.Address {
	if a == nil {
		return domain.Address{}
	}
	return domain.Address{
		Street:     a.Address1,
		Apt:        a.Address2,
		City:       a.City,
		Country:    a.Country,
		PostalCode: a.Zip,
	}
}

// recipientName joins first and last name from the primary address, falling
// back to the secondary one when the result is empty.
func recipientName(primary, secondary *addressInfo) string {
	if name := joinName(primary); name != "" {
		return name
	}
	return joinName(secondary)
}

func joinName(a *addressInfo) string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

func addressPhone(a *addressInfo) string {
	if a == nil {
		return ""
	}
	return a.Phone
}

// firstPhone returns the first candidate that formats to a dialable number.
func firstPhone(candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if formatted := identity.FormatPhone(c); formatted != "" {
			return formatted
		}
	}
	return ""
}

func firstID(ids ...flexID) string {
	for _, id := range ids {
		if s := id.String(); s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
