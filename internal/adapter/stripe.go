package adapter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/notiproof/backend/internal/event"
)

// stripeEvent is the Stripe webhook envelope with the payment-intent fields
// the adapter reads out of data.object.
type stripeEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID          string `json:"id"`
			Amount      int64  `json:"amount"`
			Currency    string `json:"currency"`
			Description string `json:"description"`
			Charges     struct {
				Data []struct {
					BillingDetails struct {
						Name    string `json:"name"`
						Address struct {
							City    string `json:"city"`
							Country string `json:"country"`
						} `json:"address"`
					} `json:"billing_details"`
				} `json:"data"`
			} `json:"charges"`
		} `json:"object"`
	} `json:"data"`
}

// StripeAdapter normalizes Stripe payment-intent webhooks.
type StripeAdapter struct{}

func NewStripeAdapter() *StripeAdapter { return &StripeAdapter{} }

func (a *StripeAdapter) Provider() string { return "stripe" }

// SyncConfig: push only, matching the other webhook providers.
func (a *StripeAdapter) SyncConfig() SyncConfig {
	return SyncConfig{
		SupportsWebhook:  true,
		MaxEventsPerSync: 50,
	}
}

func (a *StripeAdapter) AvailableFields() []event.NormalizedField {
	return []event.NormalizedField{
		{Key: "template.customer_name", Label: "Customer name", Type: event.FieldString, Example: "Jane Doe", Required: true},
		{Key: "template.product_name", Label: "Description", Type: event.FieldString, Example: "Pro plan"},
		{Key: "template.amount", Label: "Amount", Type: event.FieldCurrency, Example: "$29.00"},
		{Key: "template.location", Label: "Location", Type: event.FieldString, Example: "Berlin, Germany"},
		{Key: "template.time_ago", Label: "Relative time", Type: event.FieldDate, Example: "just now"},
		{Key: "meta.currency", Label: "Currency code", Type: event.FieldString},
	}
}

func (a *StripeAdapter) Normalize(raw json.RawMessage) event.CanonicalEvent {
	var ev stripeEvent
	_ = json.Unmarshal(raw, &ev)

	obj := ev.Data.Object

	var first, last string
	var city, country string
	if len(obj.Charges.Data) > 0 {
		bd := obj.Charges.Data[0].BillingDetails
		parts := strings.SplitN(strings.TrimSpace(bd.Name), " ", 2)
		first = parts[0]
		if len(parts) > 1 {
			last = parts[1]
		}
		city, country = bd.Address.City, bd.Address.Country
	}

	normalized := map[string]any{
		"template.customer_name": CustomerName(first, last),
	}

	var created string
	if ev.Created != 0 {
		created = time.Unix(ev.Created, 0).UTC().Format(time.RFC3339)
	}
	ts, when := eventTimestamp(created)
	normalized["template.time_ago"] = TimeAgo(time.Now(), when, false)

	if obj.Amount != 0 {
		normalized["template.amount"] = FormatCurrency(float64(obj.Amount)/100, obj.Currency)
	}
	if obj.Description != "" {
		normalized["template.product_name"] = obj.Description
	}
	if loc := Location(city, country); loc != "" {
		normalized["template.location"] = loc
	}
	if obj.Currency != "" {
		normalized["meta.currency"] = strings.ToUpper(obj.Currency)
	}

	eventID := ev.ID
	if eventID == "" {
		eventID = "stripe_" + when.Format("20060102150405.000000000")
	}

	eventType := ev.Type
	if eventType == "" {
		eventType = "payment_intent.succeeded"
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

func (a *StripeAdapter) SampleEvents() []event.CanonicalEvent {
	return []event.CanonicalEvent{
		a.Normalize(json.RawMessage(`{
			"id": "evt_1OaSample001",
			"type": "payment_intent.succeeded",
			"created": 1710432300,
			"data": {"object": {
				"id": "pi_3OaSample001",
				"amount": 2900,
				"currency": "usd",
				"description": "Pro plan subscription",
				"charges": {"data": [{"billing_details": {"name": "Lena Fischer", "address": {"city": "Berlin", "country": "Germany"}}}]}
			}}
		}`)),
		a.Normalize(json.RawMessage(`{
			"id": "evt_1OaSample002",
			"type": "charge.succeeded",
			"created": 1710435900,
			"data": {"object": {
				"id": "ch_3OaSample002",
				"amount": 125000,
				"currency": "kes",
				"description": "Annual license",
				"charges": {"data": [{"billing_details": {"name": "Amina", "address": {"city": "Nairobi", "country": "Kenya"}}}]}
			}}
		}`)),
	}
}
