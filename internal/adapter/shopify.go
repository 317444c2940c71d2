package adapter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/notiproof/backend/internal/event"
)

// shopifyOrder is the subset of a Shopify order webhook payload the adapter
// reads. Everything else stays in the raw payload for audit.
type shopifyOrder struct {
	ID          int64  `json:"id"`
	OrderNumber int64  `json:"order_number"`
	CreatedAt   string `json:"created_at"`
	Currency    string `json:"currency"`
	TotalPrice  string `json:"total_price"`
	Customer    struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"customer"`
	BillingAddress struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"billing_address"`
	LineItems []struct {
		Title string `json:"title"`
	} `json:"line_items"`
}

// ShopifyAdapter normalizes Shopify order webhooks.
type ShopifyAdapter struct{}

func NewShopifyAdapter() *ShopifyAdapter { return &ShopifyAdapter{} }

func (a *ShopifyAdapter) Provider() string { return "shopify" }

// SyncConfig: push only. Orders arrive as webhooks; there is no pull path,
// so polling is not declared.
func (a *ShopifyAdapter) SyncConfig() SyncConfig {
	return SyncConfig{
		SupportsWebhook:  true,
		MaxEventsPerSync: 50,
	}
}

func (a *ShopifyAdapter) AvailableFields() []event.NormalizedField {
	return []event.NormalizedField{
		{Key: "template.customer_name", Label: "Customer name", Type: event.FieldString, Example: "Jane Doe", Required: true},
		{Key: "template.product_name", Label: "Product", Type: event.FieldString, Example: "Linen Shirt"},
		{Key: "template.amount", Label: "Order total", Type: event.FieldCurrency, Example: "$49.00"},
		{Key: "template.location", Label: "Location", Type: event.FieldString, Example: "Lagos, Nigeria"},
		{Key: "template.time_ago", Label: "Relative time", Type: event.FieldDate, Example: "5 minutes ago"},
		{Key: "meta.order_number", Label: "Order number", Type: event.FieldString},
		{Key: "meta.currency", Label: "Currency code", Type: event.FieldString},
	}
}

func (a *ShopifyAdapter) Normalize(raw json.RawMessage) event.CanonicalEvent {
	var o shopifyOrder
	_ = json.Unmarshal(raw, &o) // lenient: missing fields stay zero

	normalized := map[string]any{
		"template.customer_name": CustomerName(o.Customer.FirstName, o.Customer.LastName),
	}

	ts, when := eventTimestamp(o.CreatedAt)
	normalized["template.time_ago"] = TimeAgo(time.Now(), when, false)

	if len(o.LineItems) > 0 && o.LineItems[0].Title != "" {
		normalized["template.product_name"] = o.LineItems[0].Title
	}
	if amount, err := strconv.ParseFloat(o.TotalPrice, 64); err == nil {
		normalized["template.amount"] = FormatCurrency(amount, o.Currency)
	}
	if loc := Location(o.BillingAddress.City, o.BillingAddress.Country); loc != "" {
		normalized["template.location"] = loc
	}
	if o.OrderNumber != 0 {
		normalized["meta.order_number"] = strconv.FormatInt(o.OrderNumber, 10)
	}
	if o.Currency != "" {
		normalized["meta.currency"] = o.Currency
	}

	eventID := fmt.Sprintf("shopify_%d", o.ID)
	if o.ID == 0 {
		eventID = "shopify_" + when.Format("20060102150405.000000000")
	}

	return event.CanonicalEvent{
		EventID:           eventID,
		Provider:          a.Provider(),
		ProviderEventType: "order.created",
		Timestamp:         ts,
		Payload:           raw,
		Normalized:        normalized,
	}
}

func (a *ShopifyAdapter) SampleEvents() []event.CanonicalEvent {
	return []event.CanonicalEvent{
		a.Normalize(json.RawMessage(`{
			"id": 450789469,
			"order_number": 1001,
			"created_at": "2024-03-14T16:05:00Z",
			"currency": "USD",
			"total_price": "89.97",
			"customer": {"first_name": "Maya", "last_name": "Okafor"},
			"billing_address": {"city": "Austin", "country": "United States"},
			"line_items": [{"title": "Canvas Tote Bag"}]
		}`)),
		a.Normalize(json.RawMessage(`{
			"id": 450789512,
			"order_number": 1002,
			"created_at": "2024-03-14T16:40:00Z",
			"currency": "NGN",
			"total_price": "15200.00",
			"customer": {"first_name": "Tunde", "last_name": ""},
			"billing_address": {"city": "Lagos", "country": "Nigeria"},
			"line_items": [{"title": "Ankara Throw Pillow"}]
		}`)),
	}
}
