package adapter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/notiproof/backend/internal/event"
)

// wooOrder is the subset of a WooCommerce order payload the adapter reads.
type wooOrder struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	Currency    string `json:"currency"`
	Total       string `json:"total"`
	DateCreated string `json:"date_created"`
	Billing     struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		City      string `json:"city"`
		Country   string `json:"country"`
	} `json:"billing"`
	LineItems []struct {
		Name string `json:"name"`
	} `json:"line_items"`
}

// WooCommerceAdapter normalizes WooCommerce order webhooks.
type WooCommerceAdapter struct{}

func NewWooCommerceAdapter() *WooCommerceAdapter { return &WooCommerceAdapter{} }

func (a *WooCommerceAdapter) Provider() string { return "woocommerce" }

func (a *WooCommerceAdapter) SyncConfig() SyncConfig {
	return SyncConfig{
		SupportsWebhook:  true,
		SupportsPolling:  false,
		MaxEventsPerSync: 50,
	}
}

func (a *WooCommerceAdapter) AvailableFields() []event.NormalizedField {
	return []event.NormalizedField{
		{Key: "template.customer_name", Label: "Customer name", Type: event.FieldString, Example: "Jane Doe", Required: true},
		{Key: "template.product_name", Label: "Product", Type: event.FieldString, Example: "Ceramic Mug"},
		{Key: "template.amount", Label: "Order total", Type: event.FieldCurrency, Example: "€24.00"},
		{Key: "template.location", Label: "Location", Type: event.FieldString, Example: "Accra, Ghana"},
		{Key: "template.time_ago", Label: "Relative time", Type: event.FieldDate, Example: "2 hours ago"},
		{Key: "meta.order_status", Label: "Order status", Type: event.FieldString},
		{Key: "meta.currency", Label: "Currency code", Type: event.FieldString},
	}
}

func (a *WooCommerceAdapter) Normalize(raw json.RawMessage) event.CanonicalEvent {
	var o wooOrder
	_ = json.Unmarshal(raw, &o)

	normalized := map[string]any{
		"template.customer_name": CustomerName(o.Billing.FirstName, o.Billing.LastName),
	}

	ts, when := eventTimestamp(o.DateCreated)
	normalized["template.time_ago"] = TimeAgo(time.Now(), when, false)

	if len(o.LineItems) > 0 && o.LineItems[0].Name != "" {
		normalized["template.product_name"] = o.LineItems[0].Name
	}
	if amount, err := strconv.ParseFloat(o.Total, 64); err == nil {
		normalized["template.amount"] = FormatCurrency(amount, o.Currency)
	}
	if loc := Location(o.Billing.City, o.Billing.Country); loc != "" {
		normalized["template.location"] = loc
	}
	if o.Status != "" {
		normalized["meta.order_status"] = o.Status
	}
	if o.Currency != "" {
		normalized["meta.currency"] = o.Currency
	}

	eventID := fmt.Sprintf("woocommerce_%d", o.ID)
	if o.ID == 0 {
		eventID = "woocommerce_" + when.Format("20060102150405.000000000")
	}

	eventType := "order.created"
	if o.Status == "completed" {
		eventType = "order.completed"
	}

	return event.CanonicalEvent{
		EventID:           eventID,
		Provider:          a.Provider(),
		ProviderEventType: eventType,
		Timestamp:         ts,
		Payload:           raw,
		Normalized:        normalized,
	}
}

func (a *WooCommerceAdapter) SampleEvents() []event.CanonicalEvent {
	return []event.CanonicalEvent{
		a.Normalize(json.RawMessage(`{
			"id": 7214,
			"status": "completed",
			"currency": "GHS",
			"total": "180.00",
			"date_created": "2024-03-14T11:22:00",
			"billing": {"first_name": "Kofi", "last_name": "Mensah", "city": "Accra", "country": "Ghana"},
			"line_items": [{"name": "Kente Notebook"}]
		}`)),
		a.Normalize(json.RawMessage(`{
			"id": 7215,
			"status": "processing",
			"currency": "EUR",
			"total": "24.00",
			"date_created": "2024-03-14T12:05:00",
			"billing": {"first_name": "", "last_name": "", "city": "Lisbon", "country": "Portugal"},
			"line_items": [{"name": "Ceramic Mug"}]
		}`)),
	}
}
