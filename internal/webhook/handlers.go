// Package webhook ingests third-party deliveries. Every handler walks the
// same pipeline: signature verification, rate limiting, idempotency-key
// dedup, adapter normalization, event persistence — each stage with its own
// short-circuit status.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/notiproof/backend/internal/adapter"
	"github.com/notiproof/backend/internal/bus"
	"github.com/notiproof/backend/internal/connector"
	"github.com/notiproof/backend/internal/event"
	"github.com/notiproof/backend/internal/httputil"
	"github.com/notiproof/backend/internal/metrics"
	"github.com/notiproof/backend/internal/middleware"
	"github.com/notiproof/backend/internal/template"
)

// maxBodySize bounds inbound webhook bodies.
const maxBodySize = 1 << 20 // 1 MiB

// webhookLimit is the per-shop / per-connector delivery budget.
var webhookLimit = middleware.Limit{MaxRequests: 60, Window: time.Minute}

// ReceiptClaimer claims idempotency keys. Implemented by ReceiptStore.
type ReceiptClaimer interface {
	Claim(ctx context.Context, key, webhookType string, payload []byte) (bool, error)
}

// EventWriter persists event rows. Implemented by event.Store.
type EventWriter interface {
	InsertIgnoreDuplicates(ctx context.Context, rows []event.Row) (int, error)
}

// ConnectorSource resolves connector records. Implemented by connector.Store.
type ConnectorSource interface {
	Get(ctx context.Context, id string) (*connector.Connector, error)
	FindByProviderKey(ctx context.Context, provider, key string) (*connector.Connector, error)
}

// TemplateSource serves the WooCommerce ingestion-time render. Implemented
// by template.Store.
type TemplateSource interface {
	DefaultForProvider(ctx context.Context, provider string) (*template.Config, error)
}

// Publisher fans persisted events out to the bus. Implemented by bus brokers.
type Publisher interface {
	Publish(topic string, msg bus.Message) error
}

// Secrets carries the app-wide webhook secrets. WooCommerce and Typeform
// secrets are per-connector and live on the connector record instead.
type Secrets struct {
	Shopify string
	Stripe  string
}

// Handlers serves the webhook ingestion endpoints.
type Handlers struct {
	registry   *adapter.Registry
	receipts   ReceiptClaimer
	events     EventWriter
	connectors ConnectorSource
	templates  TemplateSource
	limiter    *middleware.KeyedLimiter
	broker     Publisher
	secrets    Secrets
	now        func() time.Time
}

// NewHandlers creates webhook Handlers.
func NewHandlers(registry *adapter.Registry, receipts ReceiptClaimer, events EventWriter, connectors ConnectorSource, templates TemplateSource, limiter *middleware.KeyedLimiter, broker Publisher, secrets Secrets) *Handlers {
	return &Handlers{
		registry:   registry,
		receipts:   receipts,
		events:     events,
		connectors: connectors,
		templates:  templates,
		limiter:    limiter,
		broker:     broker,
		secrets:    secrets,
		now:        time.Now,
	}
}

// RegisterRoutes wires the webhook endpoints onto the router. These routes
// are authenticated by signature, not by bearer token.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/webhooks/shopify", h.Shopify).Methods("POST")
	r.HandleFunc("/webhooks/stripe", h.Stripe).Methods("POST")
	r.HandleFunc("/webhooks/woocommerce/{connectorID}", h.WooCommerce).Methods("POST")
	r.HandleFunc("/webhooks/typeform/{connectorID}", h.Typeform).Methods("POST")
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "unreadable body")
		return nil, false
	}
	return body, true
}

// checkRate applies the per-key limit and writes the 429 with a retry_after
// hint on rejection.
func (h *Handlers) checkRate(w http.ResponseWriter, provider, key string) bool {
	res := h.limiter.Check(key, webhookLimit)
	if res.Allowed {
		return true
	}
	metrics.WebhooksRejected.WithLabelValues(provider, "rate_limit").Inc()
	retryAfter := int(res.RetryAfter.Seconds()) + 1
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": retryAfter,
	})
	return false
}

// claim runs the idempotency-key dedup. A false return means the response
// has been written (duplicate, or a storage error).
func (h *Handlers) claim(w http.ResponseWriter, ctx context.Context, provider, key string, body []byte) bool {
	claimed, err := h.receipts.Claim(ctx, key, provider, body)
	if err != nil {
		log.Printf("webhook: receipt claim failed for %s: %v", key, err)
		httputil.WriteError(w, http.StatusInternalServerError, "dedup store unavailable")
		return false
	}
	if !claimed {
		metrics.WebhooksDuplicate.WithLabelValues(provider).Inc()
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"received": true, "duplicate": true})
		return false
	}
	return true
}

// persist inserts the event row and publishes it. Bus publish failures are
// logged, never rolled back: the row is already committed.
func (h *Handlers) persist(ctx context.Context, row event.Row, ev event.CanonicalEvent, source string) {
	inserted, err := h.events.InsertIgnoreDuplicates(ctx, []event.Row{row})
	if err != nil {
		log.Printf("webhook: insert event %s failed: %v", row.ExternalID, err)
		return
	}
	if inserted == 0 {
		// Already present via the polling path.
		return
	}
	metrics.EventsIngested.WithLabelValues(ev.Provider, source).Inc()
	if h.broker != nil {
		if err := h.broker.Publish(bus.TopicEventCreated, bus.NewEventCreated(row.WebsiteID, ev)); err != nil {
			log.Printf("webhook: publish event %s failed: %v", ev.EventID, err)
		}
	}
}

// Shopify handles POST /webhooks/shopify. Authentication is the app-wide
// shared secret; the shop domain header keys both the rate limit and the
// connector lookup.
func (h *Handlers) Shopify(w http.ResponseWriter, r *http.Request) {
	metrics.WebhooksReceived.WithLabelValues("shopify").Inc()

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	if h.secrets.Shopify == "" {
		httputil.WriteError(w, http.StatusInternalServerError, "shopify webhook secret not configured")
		return
	}
	if !VerifyShopify(body, h.secrets.Shopify, r.Header.Get("X-Shopify-Hmac-Sha256")) {
		metrics.WebhooksRejected.WithLabelValues("shopify", "signature").Inc()
		httputil.WriteError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	shop := r.Header.Get("X-Shopify-Shop-Domain")
	if !h.checkRate(w, "shopify", "shopify:"+shop) {
		return
	}

	topic := r.Header.Get("X-Shopify-Topic")
	if topic == "" {
		topic = "orders/create"
	}
	var payload struct {
		ID json.Number `json:"id"`
	}
	_ = json.Unmarshal(body, &payload)
	externalID := payload.ID.String()
	if externalID == "" || externalID == "0" {
		httputil.WriteError(w, http.StatusBadRequest, "payload missing order id")
		return
	}

	ctx := r.Context()
	if !h.claim(w, ctx, "shopify", IdempotencyKey("shopify", topic, externalID), body) {
		return
	}

	ev := h.registry.Get("shopify").Normalize(body)
	ev.ProviderEventType = shopifyEventType(topic)

	var connectorID, websiteID string
	if conn, err := h.connectors.FindByProviderKey(ctx, "shopify", shop); err == nil {
		connectorID, websiteID = conn.ID, conn.WebsiteID
	}

	h.persist(ctx, event.RowFromCanonical(ev, connectorID, websiteID, externalID), ev, "webhook")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"received": true, "event_id": ev.EventID})
}

// shopifyEventType maps a webhook topic like "orders/create" onto the
// canonical dotted sub-type.
func shopifyEventType(topic string) string {
	switch topic {
	case "orders/create":
		return "order.created"
	case "orders/paid":
		return "order.paid"
	case "orders/fulfilled":
		return "order.fulfilled"
	default:
		return topic
	}
}

// Stripe handles POST /webhooks/stripe. The signature header carries its
// own timestamp, checked against a 300 second replay window.
func (h *Handlers) Stripe(w http.ResponseWriter, r *http.Request) {
	metrics.WebhooksReceived.WithLabelValues("stripe").Inc()

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	if h.secrets.Stripe == "" {
		httputil.WriteError(w, http.StatusInternalServerError, "stripe webhook secret not configured")
		return
	}
	if err := VerifyStripe(body, h.secrets.Stripe, r.Header.Get("Stripe-Signature"), h.now(), StripeTolerance); err != nil {
		metrics.WebhooksRejected.WithLabelValues("stripe", "signature").Inc()
		httputil.WriteError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Account string `json:"account"`
	}
	_ = json.Unmarshal(body, &payload)
	if payload.ID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "payload missing event id")
		return
	}

	rateKey := "stripe:" + payload.Account
	if payload.Account == "" {
		rateKey = "stripe:platform"
	}
	if !h.checkRate(w, "stripe", rateKey) {
		return
	}

	ctx := r.Context()
	if !h.claim(w, ctx, "stripe", IdempotencyKey("stripe", payload.Type, payload.ID), body) {
		return
	}

	ev := h.registry.Get("stripe").Normalize(body)

	var connectorID, websiteID string
	if payload.Account != "" {
		if conn, err := h.connectors.FindByProviderKey(ctx, "stripe", payload.Account); err == nil {
			connectorID, websiteID = conn.ID, conn.WebsiteID
		}
	}

	h.persist(ctx, event.RowFromCanonical(ev, connectorID, websiteID, payload.ID), ev, "webhook")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"received": true, "event_id": ev.EventID})
}

// WooCommerce handles POST /webhooks/woocommerce/{connectorID}. The secret
// is per-connector, and uniquely among the providers the stored template is
// rendered at ingestion time and cached on the event row.
func (h *Handlers) WooCommerce(w http.ResponseWriter, r *http.Request) {
	metrics.WebhooksReceived.WithLabelValues("woocommerce").Inc()

	connectorID := mux.Vars(r)["connectorID"]
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	conn, err := h.connectors.Get(ctx, connectorID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "unknown connector")
		return
	}
	cfg, err := conn.TypedConfig()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "connector misconfigured")
		return
	}
	wooCfg, ok := cfg.(*connector.WooCommerceConfig)
	if !ok || wooCfg.WebhookSecret == "" {
		httputil.WriteError(w, http.StatusInternalServerError, "woocommerce webhook secret not configured")
		return
	}

	if !VerifyWooCommerce(body, wooCfg.WebhookSecret, r.Header.Get("X-WC-Webhook-Signature")) {
		metrics.WebhooksRejected.WithLabelValues("woocommerce", "signature").Inc()
		httputil.WriteError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	if !h.checkRate(w, "woocommerce", "webhook:"+connectorID) {
		return
	}

	topic := r.Header.Get("X-WC-Webhook-Topic")
	if topic == "" {
		topic = "order.created"
	}
	var payload struct {
		ID json.Number `json:"id"`
	}
	_ = json.Unmarshal(body, &payload)
	externalID := payload.ID.String()
	if externalID == "" || externalID == "0" {
		httputil.WriteError(w, http.StatusBadRequest, "payload missing order id")
		return
	}

	if !h.claim(w, ctx, "woocommerce", IdempotencyKey("woocommerce", topic, externalID), body) {
		return
	}

	ev := h.registry.Get("woocommerce").Normalize(body)
	row := event.RowFromCanonical(ev, conn.ID, conn.WebsiteID, externalID)

	// Precompute path: render the stored template now and cache the HTML on
	// the row. Every other provider stores only normalized data and renders
	// lazily at display time.
	if h.templates != nil {
		if tmpl, err := h.templates.DefaultForProvider(ctx, "woocommerce"); err == nil {
			row.RenderedHTML = template.Render(*tmpl, ev, nil)
		} else {
			log.Printf("webhook: no woocommerce template to prerender: %v", err)
		}
	}

	h.persist(ctx, row, ev, "webhook")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"received": true, "event_id": ev.EventID})
}

// typeformPayload is the slice of a Typeform webhook the handler reads.
type typeformPayload struct {
	EventID      string `json:"event_id"`
	EventType    string `json:"event_type"`
	FormResponse struct {
		SubmittedAt string `json:"submitted_at"`
		Definition  struct {
			Title string `json:"title"`
		} `json:"definition"`
		Answers []struct {
			Type  string `json:"type"`
			Text  string `json:"text"`
			Field struct {
				Ref string `json:"ref"`
			} `json:"field"`
		} `json:"answers"`
	} `json:"form_response"`
}

// Typeform handles POST /webhooks/typeform/{connectorID}. Typeform auth is
// an opaque token query parameter checked against the connector record —
// not a cryptographic signature in this implementation. Submissions flow
// through the form_hook adapter.
func (h *Handlers) Typeform(w http.ResponseWriter, r *http.Request) {
	metrics.WebhooksReceived.WithLabelValues("typeform").Inc()

	connectorID := mux.Vars(r)["connectorID"]
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	conn, err := h.connectors.Get(ctx, connectorID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "unknown connector")
		return
	}
	cfg, err := conn.TypedConfig()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "connector misconfigured")
		return
	}
	tfCfg, ok := cfg.(*connector.TypeformConfig)
	if !ok || tfCfg.WebhookToken == "" {
		httputil.WriteError(w, http.StatusInternalServerError, "typeform webhook token not configured")
		return
	}
	if r.URL.Query().Get("token") != tfCfg.WebhookToken {
		metrics.WebhooksRejected.WithLabelValues("typeform", "token").Inc()
		httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	if !h.checkRate(w, "typeform", "webhook:"+connectorID) {
		return
	}

	var payload typeformPayload
	_ = json.Unmarshal(body, &payload)
	if payload.EventID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "payload missing event_id")
		return
	}
	eventType := payload.EventType
	if eventType == "" {
		eventType = "form_response"
	}

	if !h.claim(w, ctx, "typeform", IdempotencyKey("typeform", eventType, payload.EventID), body) {
		return
	}

	// Re-shape the submission into the form_hook payload and normalize
	// through that adapter: Typeform is an ingestion route, not a distinct
	// canonical provider.
	hookPayload, _ := json.Marshal(map[string]any{
		"id":           payload.EventID,
		"name":         typeformRespondentName(payload),
		"form_name":    payload.FormResponse.Definition.Title,
		"submitted_at": payload.FormResponse.SubmittedAt,
	})
	ev := h.registry.Get("form_hook").Normalize(hookPayload)
	ev.Payload = body

	h.persist(ctx, event.RowFromCanonical(ev, conn.ID, conn.WebsiteID, payload.EventID), ev, "webhook")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"received": true, "event_id": ev.EventID})
}

// typeformRespondentName picks the answer for a field ref containing
// "name", falling back to the first text answer.
func typeformRespondentName(p typeformPayload) string {
	var firstText string
	for _, a := range p.FormResponse.Answers {
		if a.Type != "text" || a.Text == "" {
			continue
		}
		if firstText == "" {
			firstText = a.Text
		}
		if strings.Contains(strings.ToLower(a.Field.Ref), "name") {
			return a.Text
		}
	}
	return firstText
}
