package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"whatsapp-notifier/internal/webhook"
)

// Sends a signed Shopify-shaped webhook at a locally running server.
// Handy for exercising the full verify/normalize/reconcile path without a
// Shopify store.

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Server base URL")
	secret := flag.String("secret", os.Getenv("SHOPIFY_API_SECRET"), "Webhook secret")
	topic := flag.String("topic", "orders/create", "Topic (orders/create, orders/updated, orders/fulfilled, carts/create, checkouts/create, checkouts/update)")
	shop := flag.String("shop", "demo-shop.myshopify.com", "Shop domain header")
	orderID := flag.Int64("order-id", time.Now().Unix(), "Order/cart id")
	phone := flag.String("phone", "0501234567", "Customer phone")
	dryRun := flag.Bool("dry-run", false, "Only print signature and body, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and SHOPIFY_API_SECRET not set\n")
		os.Exit(1)
	}

	body, err := json.Marshal(samplePayload(*topic, *orderID, *phone))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	sig := webhook.Sign(*secret, body)

	fmt.Printf("X-Shopify-Hmac-Sha256: %s\n", sig)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	url := *baseURL + "/webhooks/" + *topic
	fmt.Printf("\nSending to %s...\n", url)
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Hmac-Sha256", sig)
	req.Header.Set("X-Shopify-Topic", *topic)
	req.Header.Set("X-Shopify-Shop-Domain", *shop)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

func samplePayload(topic string, orderID int64, phone string) map[string]any {
	switch topic {
	case "orders/fulfilled":
		return map[string]any{
			"order_id":     orderID,
			"order_number": orderID % 10000,
			"fulfillment": map[string]any{
				"id":               1,
				"tracking_number":  "TRK123456",
				"tracking_url":     "https://tracking.example.com/TRK123456",
				"tracking_company": "Israel Post",
			},
		}
	case "orders/updated":
		return map[string]any{
			"id":                 orderID,
			"fulfillment_status": nil,
		}
	case "carts/create", "checkouts/create", "checkouts/update":
		return map[string]any{
			"id":          fmt.Sprintf("cart-%d", orderID),
			"total_price": "119.80",
			"customer": map[string]any{
				"email": "demo@example.com",
				"phone": phone,
			},
			"line_items": []map[string]any{
				{"title": "Demo Mug", "sku": "SKU-DEMO-MUG", "quantity": 2, "price": "59.90"},
			},
		}
	default: // orders/create
		return map[string]any{
			"id":           orderID,
			"order_number": orderID % 10000,
			"total_price":  "150.00",
			"shipping_address": map[string]any{
				"first_name": "Demo",
				"last_name":  "Customer",
				"phone":      phone,
				"address1":   "Herzl 1",
				"city":       "Tel Aviv",
			},
			"line_items": []map[string]any{
				{"title": "Demo T-Shirt", "sku": "SKU-DEMO-TSHIRT", "quantity": 2, "price": "75.00", "requires_shipping": true},
			},
		}
	}
}
