// Package adapter converts heterogeneous third-party payloads (Shopify
// orders, Stripe payment intents, WooCommerce orders, testimonials, form
// submissions, synthetic native events) into the one canonical event shape
// consumed by the template engine and the storage layer.
package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/notiproof/backend/internal/event"
)

// SyncConfig describes how events for a provider reach the system.
type SyncConfig struct {
	SupportsWebhook  bool          `json:"supports_webhook"`
	SupportsPolling  bool          `json:"supports_polling"`
	PollInterval     time.Duration `json:"poll_interval"`
	MaxEventsPerSync int           `json:"max_events_per_sync"`
}

// FetchOptions bounds a polling fetch.
type FetchOptions struct {
	Since time.Time
	Limit int
}

// Adapter translates one provider's event shape into the canonical shape.
//
// Normalize must be pure and total: given any payload, including one with
// arbitrary missing nested fields, it returns a CanonicalEvent without
// erroring. Missing source fields are simply absent from Normalized (never a
// thrown error, never a default string, except where a documented default
// applies such as the "Someone" customer name). That contract is what lets
// the template engine substitute a missing {{field}} with an empty string
// instead of failing.
type Adapter interface {
	// Provider returns the stable canonical identifier, never an alias.
	Provider() string

	// AvailableFields statically declares every key Normalize can populate.
	// It must not depend on instance state.
	AvailableFields() []event.NormalizedField

	// Normalize converts a raw provider payload into a canonical event.
	Normalize(raw json.RawMessage) event.CanonicalEvent

	// SampleEvents returns deterministic fixtures for preview and testing,
	// at least one per meaningfully different provider event type.
	SampleEvents() []event.CanonicalEvent

	// SyncConfig reports the ingestion modes the provider supports.
	SyncConfig() SyncConfig
}

// Fetcher is the optional pull capability for adapters whose events live in
// a store we can query (e.g. testimonials). Adapters without it only receive
// events through webhooks or synchronous generation.
type Fetcher interface {
	FetchEvents(ctx context.Context, connectorID string, opts FetchOptions) ([]event.CanonicalEvent, error)
}
