package connector

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		raw      string
		wantErr  string
	}{
		{"shopify ok", "shopify", `{"shop_domain":"x.myshopify.com","access_token":"tok"}`, ""},
		{"shopify missing domain", "shopify", `{"access_token":"tok"}`, "shop_domain"},
		{"stripe ok", "stripe", `{"account_id":"acct_1","api_key":"sk_test"}`, ""},
		{"stripe missing account", "stripe", `{"api_key":"sk_test"}`, "account_id"},
		{"woocommerce ok", "woocommerce", `{"store_url":"https://shop.example","webhook_secret":"s"}`, ""},
		{"woocommerce missing secret", "woocommerce", `{"store_url":"https://shop.example"}`, "webhook_secret"},
		{"typeform ok", "typeform", `{"form_id":"abc","webhook_token":"tok"}`, ""},
		{"typeform missing token", "typeform", `{"form_id":"abc"}`, "webhook_token"},
		{"testimonials ok", "testimonials", `{"website_id":"w1","min_rating":4,"approved_only":true}`, ""},
		{"testimonials missing website", "testimonials", `{"min_rating":4}`, "website_id"},
		{"testimonials rating out of range", "testimonials", `{"website_id":"w1","min_rating":6}`, "min_rating"},
		{"unknown provider", "mystery", `{}`, "no config shape"},
		{"malformed json", "shopify", `{notjson`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := DecodeConfig(tt.provider, []byte(tt.raw))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("DecodeConfig: %v", err)
				}
				if cfg == nil {
					t.Fatal("nil config")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeConfigTypedShapes(t *testing.T) {
	cfg, err := DecodeConfig("woocommerce", []byte(`{"store_url":"https://shop.example","webhook_secret":"s"}`))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	woo, ok := cfg.(*WooCommerceConfig)
	if !ok {
		t.Fatalf("got %T", cfg)
	}
	if woo.StoreURL != "https://shop.example" || woo.WebhookSecret != "s" {
		t.Errorf("config %+v", woo)
	}
}

func TestConnectorTypedConfig(t *testing.T) {
	c := &Connector{
		Provider: "typeform",
		Config:   json.RawMessage(`{"form_id":"abc","webhook_token":"tok"}`),
	}
	cfg, err := c.TypedConfig()
	if err != nil {
		t.Fatalf("TypedConfig: %v", err)
	}
	tf, ok := cfg.(*TypeformConfig)
	if !ok || tf.WebhookToken != "tok" {
		t.Errorf("got %T %+v", cfg, cfg)
	}
}

func TestConnectorJSONHidesConfig(t *testing.T) {
	c := &Connector{
		ID:       "c1",
		Provider: "shopify",
		Config:   json.RawMessage(`{"access_token":"secret"}`),
	}
	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "secret") {
		t.Errorf("credentials leaked into JSON: %s", out)
	}
}
