package webhook

import (
	"bytes"
	"strconv"
)

// Wire shapes for the Shopify webhook payloads this service consumes. Fields
// are decoded loosely: ids and money arrive as either numbers or strings and
// almost everything is optional, so the structs accept what the platform
// sends and the normalizer applies defaults.

// money decodes an amount field that may be a JSON string ("150.00"), a bare
// number, or null. Unparseable values default to zero.
type money float64

func (m *money) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*m = 0
		return nil
	}
	*m = money(f)
	return nil
}

// flexID decodes an id field that may be a JSON number or string. Null and
// absent both yield the empty string.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	*f = flexID(b)
	return nil
}

func (f flexID) String() string { return string(f) }

type orderPayload struct {
	ID                flexID         `json:"id"`
	OrderID           flexID         `json:"order_id"`
	OrderNumber       int64          `json:"order_number"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	Phone             string         `json:"phone"`
	FulfillmentStatus *string        `json:"fulfillment_status"`
	Customer          *payloadPerson `json:"customer"`
	BillingAddress    *addressInfo   `json:"billing_address"`
	ShippingAddress   *addressInfo   `json:"shipping_address"`
	LineItems         []lineItem     `json:"line_items"`
	ShippingLines     []shippingLine `json:"shipping_lines"`
	TaxLines          []taxLine      `json:"tax_lines"`
	SubtotalPrice     money          `json:"subtotal_price"`
	TotalPrice        money          `json:"total_price"`
	TotalTax          money          `json:"total_tax"`
	CreatedAt         string         `json:"created_at"`
}

type cartPayload struct {
	ID              flexID         `json:"id"`
	Token           string         `json:"token"`
	CartToken       string         `json:"cart_token"`
	Email           string         `json:"email"`
	Phone           string         `json:"phone"`
	Note            string         `json:"note"`
	Customer        *payloadPerson `json:"customer"`
	BillingAddress  *addressInfo   `json:"billing_address"`
	ShippingAddress *addressInfo   `json:"shipping_address"`
	LineItems       []lineItem     `json:"line_items"`
	SubtotalPrice   money          `json:"subtotal_price"`
	TotalPrice      money          `json:"total_price"`
	TotalTax        money          `json:"total_tax"`
	Currency        string         `json:"currency"`
	CheckoutURL     string         `json:"abandoned_checkout_url"`
	UpdatedAt       string         `json:"updated_at"`
	CreatedAt       string         `json:"created_at"`
}

type fulfillmentPayload struct {
	ID           flexID            `json:"id"`
	OrderID      flexID            `json:"order_id"`
	OrderNumber  int64             `json:"order_number"`
	Name         string            `json:"name"`
	Fulfillment  *fulfillmentInfo  `json:"fulfillment"`
	Fulfillments []fulfillmentInfo `json:"fulfillments"`
	Destination  *addressInfo      `json:"destination"`

	// Flat shape: fulfillments/create delivers the fulfillment fields at the
	// top level rather than nested.
	Status          string     `json:"status"`
	TrackingCompany string     `json:"tracking_company"`
	TrackingNumber  flexID     `json:"tracking_number"`
	TrackingNumbers []string   `json:"tracking_numbers"`
	TrackingURL     string     `json:"tracking_url"`
	TrackingURLs    []string   `json:"tracking_urls"`
	LineItems       []lineItem `json:"line_items"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
}

type fulfillmentInfo struct {
	ID              flexID     `json:"id"`
	Status          string     `json:"status"`
	TrackingCompany string     `json:"tracking_company"`
	TrackingNumber  flexID     `json:"tracking_number"`
	TrackingNumbers []string   `json:"tracking_numbers"`
	TrackingURL     string     `json:"tracking_url"`
	TrackingURLs    []string   `json:"tracking_urls"`
	LineItems       []lineItem `json:"line_items"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
}

type orderUpdatePayload struct {
	ID                flexID         `json:"id"`
	OrderID           flexID         `json:"order_id"`
	FulfillmentStatus nullableStatus `json:"fulfillment_status"`
}

// nullableStatus distinguishes an explicit JSON null from an absent field:
// orders/updated signals cancellation with "fulfillment_status": null, while
// payloads that omit the field entirely are unrelated edits.
type nullableStatus struct {
	present bool
	null    bool
}

func (n *nullableStatus) UnmarshalJSON(b []byte) error {
	n.present = true
	n.null = bytes.Equal(bytes.TrimSpace(b), []byte("null"))
	return nil
}

// explicitNull reports that the field was present and literally null.
func (n nullableStatus) explicitNull() bool {
	return n.present && n.null
}

type payloadPerson struct {
	ID        flexID `json:"id"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type addressInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

type lineItem struct {
	ID               flexID  `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	SKU              string  `json:"sku"`
	VariantID        flexID  `json:"variant_id"`
	ProductID        flexID  `json:"product_id"`
	Quantity         int     `json:"quantity"`
	Price            money   `json:"price"`
	Grams            float64 `json:"grams"`
	RequiresShipping bool    `json:"requires_shipping"`
}

type shippingLine struct {
	Price money `json:"price"`
}

type taxLine struct {
	Price money   `json:"price"`
	Rate  float64 `json:"rate"`
}
