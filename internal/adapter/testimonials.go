package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/notiproof/backend/internal/event"
	"github.com/notiproof/backend/internal/testimonial"
)

// TestimonialSource lists stored testimonials. Implemented by
// testimonial.Store; faked in tests.
type TestimonialSource interface {
	List(ctx context.Context, f testimonial.Filter) ([]testimonial.Testimonial, error)
}

// FilterFunc resolves the testimonial filters configured on a connector
// (website, form, minimum rating, approved-only).
type FilterFunc func(ctx context.Context, connectorID string) (testimonial.Filter, error)

// rawTestimonial is the payload shape Normalize accepts, matching the JSON
// encoding of testimonial.Testimonial.
type rawTestimonial struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name"`
	Rating       int    `json:"rating"`
	Content      string `json:"content"`
	CreatedAt    string `json:"created_at"`
	Metadata     struct {
		VerifiedPurchase bool `json:"verified_purchase"`
	} `json:"metadata"`
}

// TestimonialsAdapter turns collected testimonials into canonical events.
// Unlike the commerce adapters it is pull-based: FetchEvents reads from the
// testimonial table using the connector's configured filters.
type TestimonialsAdapter struct {
	source    TestimonialSource
	filterFor FilterFunc
}

func NewTestimonialsAdapter(source TestimonialSource, filterFor FilterFunc) *TestimonialsAdapter {
	return &TestimonialsAdapter{source: source, filterFor: filterFor}
}

func (a *TestimonialsAdapter) Provider() string { return "testimonials" }

func (a *TestimonialsAdapter) SyncConfig() SyncConfig {
	return SyncConfig{
		SupportsPolling:  true,
		PollInterval:     10 * time.Minute,
		MaxEventsPerSync: 20,
	}
}

func (a *TestimonialsAdapter) AvailableFields() []event.NormalizedField {
	return []event.NormalizedField{
		{Key: "template.customer_name", Label: "Customer name", Type: event.FieldString, Example: "Jane Doe", Required: true},
		{Key: "template.rating", Label: "Rating", Type: event.FieldNumber, Example: "5"},
		{Key: "template.stars", Label: "Star display", Type: event.FieldString, Example: "★★★★★"},
		{Key: "template.review_text", Label: "Review", Type: event.FieldString, Example: "Love it!"},
		{Key: "template.time_ago", Label: "Relative time", Type: event.FieldDate, Example: "2 weeks ago"},
		{Key: "template.verified", Label: "Verified purchase", Type: event.FieldBoolean, Example: "true"},
	}
}

func (a *TestimonialsAdapter) Normalize(raw json.RawMessage) event.CanonicalEvent {
	var t rawTestimonial
	_ = json.Unmarshal(raw, &t)

	normalized := map[string]any{
		"template.customer_name": CustomerName(t.CustomerName, ""),
		"template.verified":      t.Metadata.VerifiedPurchase,
	}

	ts, when := eventTimestamp(t.CreatedAt)
	// Testimonials keep the extra week tier: an 8 day old review reads
	// "1 week ago" rather than a bare date.
	normalized["template.time_ago"] = TimeAgo(time.Now(), when, true)

	if t.Rating > 0 {
		normalized["template.rating"] = float64(t.Rating)
		normalized["template.stars"] = Stars(t.Rating)
	}
	if t.Content != "" {
		normalized["template.review_text"] = t.Content
	}

	eventID := "testimonial_" + t.ID
	if t.ID == "" {
		eventID = "testimonial_" + when.Format("20060102150405.000000000")
	}

	return event.CanonicalEvent{
		EventID:           eventID,
		Provider:          a.Provider(),
		ProviderEventType: "testimonial.approved",
		Timestamp:         ts,
		Payload:           raw,
		Normalized:        normalized,
	}
}

// FetchEvents pulls approved testimonials newer than opts.Since through the
// connector's configured filters.
func (a *TestimonialsAdapter) FetchEvents(ctx context.Context, connectorID string, opts FetchOptions) ([]event.CanonicalEvent, error) {
	if a.source == nil {
		return nil, fmt.Errorf("testimonials adapter has no source")
	}

	filter := testimonial.Filter{ApprovedOnly: true}
	if a.filterFor != nil {
		f, err := a.filterFor(ctx, connectorID)
		if err != nil {
			return nil, fmt.Errorf("resolve testimonial filters: %w", err)
		}
		filter = f
		filter.ApprovedOnly = true
	}
	filter.Since = opts.Since
	if opts.Limit > 0 {
		filter.Limit = opts.Limit
	}

	items, err := a.source.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch testimonials: %w", err)
	}

	events := make([]event.CanonicalEvent, 0, len(items))
	for _, t := range items {
		raw, err := json.Marshal(t)
		if err != nil {
			continue
		}
		events = append(events, a.Normalize(raw))
	}
	return events, nil
}

func (a *TestimonialsAdapter) SampleEvents() []event.CanonicalEvent {
	return []event.CanonicalEvent{
		a.Normalize(json.RawMessage(`{
			"id": "f3b9c8e0-sample-1",
			"customer_name": "Priya",
			"rating": 5,
			"content": "Setup took five minutes and conversions are already up.",
			"created_at": "2024-03-01T09:30:00Z",
			"metadata": {"verified_purchase": true}
		}`)),
		a.Normalize(json.RawMessage(`{
			"id": "f3b9c8e0-sample-2",
			"customer_name": "Daniel",
			"rating": 4,
			"content": "Does what it says on the tin.",
			"created_at": "2024-03-10T18:12:00Z",
			"metadata": {}
		}`)),
	}
}
