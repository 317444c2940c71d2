// Package connector persists a user's configured integration instances:
// provider, website, credentials and sync state. Credential blobs are
// encrypted at rest; config shapes are typed per provider and validated at
// load time rather than probed as loose JSON.
package connector

import (
	"encoding/json"
	"fmt"
	"time"
)

// Connector is one configured integration instance.
type Connector struct {
	ID             string          `json:"id"`
	Provider       string          `json:"provider"`
	WebsiteID      string          `json:"website_id"`
	ProviderKey    string          `json:"provider_key,omitempty"` // shop domain / account id, used for webhook lookup
	Config         json.RawMessage `json:"-"`                      // decrypted config JSON, never serialized
	LastSync       *time.Time      `json:"last_sync,omitempty"`
	LastSyncStatus json.RawMessage `json:"last_sync_status,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SyncStatus is the blob written to last_sync_status after every sync
// attempt, success or not.
type SyncStatus struct {
	Success      bool      `json:"success"`
	EventsSynced int       `json:"events_synced,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ShopifyConfig holds a Shopify connector's settings.
type ShopifyConfig struct {
	ShopDomain  string `json:"shop_domain"`
	AccessToken string `json:"access_token"`
}

func (c ShopifyConfig) Validate() error {
	if c.ShopDomain == "" {
		return fmt.Errorf("shopify config: shop_domain is required")
	}
	return nil
}

// StripeConfig holds a Stripe connector's settings.
type StripeConfig struct {
	AccountID string `json:"account_id"`
	APIKey    string `json:"api_key"`
}

func (c StripeConfig) Validate() error {
	if c.AccountID == "" {
		return fmt.Errorf("stripe config: account_id is required")
	}
	return nil
}

// WooCommerceConfig holds a WooCommerce connector's settings. The webhook
// secret is per-connector, unlike Shopify's app-wide secret.
type WooCommerceConfig struct {
	StoreURL      string `json:"store_url"`
	WebhookSecret string `json:"webhook_secret"`
}

func (c WooCommerceConfig) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("woocommerce config: webhook_secret is required")
	}
	return nil
}

// TypeformConfig holds a Typeform connector's settings. The webhook token is
// an opaque shared secret carried as a query parameter, not an HMAC.
type TypeformConfig struct {
	FormID       string `json:"form_id"`
	WebhookToken string `json:"webhook_token"`
}

func (c TypeformConfig) Validate() error {
	if c.WebhookToken == "" {
		return fmt.Errorf("typeform config: webhook_token is required")
	}
	return nil
}

// TestimonialsConfig holds the pull filters for a testimonials connector.
type TestimonialsConfig struct {
	WebsiteID    string `json:"website_id"`
	FormID       string `json:"form_id,omitempty"`
	MinRating    int    `json:"min_rating,omitempty"`
	ApprovedOnly bool   `json:"approved_only"`
}

func (c TestimonialsConfig) Validate() error {
	if c.WebsiteID == "" {
		return fmt.Errorf("testimonials config: website_id is required")
	}
	if c.MinRating < 0 || c.MinRating > 5 {
		return fmt.Errorf("testimonials config: min_rating must be 0-5")
	}
	return nil
}

// DecodeConfig decodes and validates a connector config blob into its typed
// per-provider shape. Unknown providers and invalid configs fail here, at
// load time, with a clear error instead of surfacing as missing fields at
// use sites.
func DecodeConfig(provider string, raw []byte) (any, error) {
	decode := func(into interface{ Validate() error }) (any, error) {
		if err := json.Unmarshal(raw, into); err != nil {
			return nil, fmt.Errorf("decode %s config: %w", provider, err)
		}
		if err := into.Validate(); err != nil {
			return nil, err
		}
		return into, nil
	}

	switch provider {
	case "shopify":
		return decode(&ShopifyConfig{})
	case "stripe":
		return decode(&StripeConfig{})
	case "woocommerce":
		return decode(&WooCommerceConfig{})
	case "typeform":
		return decode(&TypeformConfig{})
	case "testimonials":
		return decode(&TestimonialsConfig{})
	default:
		return nil, fmt.Errorf("no config shape for provider %q", provider)
	}
}
