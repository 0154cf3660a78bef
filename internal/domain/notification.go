package domain

import "time"

// Notification transaction types, used to partition the outbound queue.
const (
	TransactionOrder    = "order"
	TransactionTracking = "shipment_tracking"
)

// NotificationEntry is one outbound message for the delivery worker. This
// service only appends entries; the worker flips Sent and cleans up.
type NotificationEntry struct {
	ClientID        string     `json:"clientId"`
	Number          string     `json:"number"`
	Message         string     `json:"message"`
	TransactionType string     `json:"transactionType"`
	OrderNumber     int64      `json:"orderNumber,omitempty"`
	TrackingNumber  string     `json:"trackingNumber,omitempty"`
	TrackingURL     string     `json:"trackingUrl,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	SendAfter       *time.Time `json:"sendAfter,omitempty"`
	Sent            bool       `json:"sent"`
}
