// Package metrics exposes ingestion counters on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhooksReceived counts inbound webhook deliveries per provider.
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notiproof_webhooks_received_total",
		Help: "Inbound webhook deliveries.",
	}, []string{"provider"})

	// WebhooksRejected counts deliveries dropped before processing.
	WebhooksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notiproof_webhooks_rejected_total",
		Help: "Webhook deliveries rejected before processing.",
	}, []string{"provider", "reason"})

	// WebhooksDuplicate counts deliveries suppressed by the idempotency key.
	WebhooksDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notiproof_webhooks_duplicate_total",
		Help: "Webhook deliveries suppressed as duplicates.",
	}, []string{"provider"})

	// EventsIngested counts canonical event rows created.
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notiproof_events_ingested_total",
		Help: "Canonical events persisted.",
	}, []string{"provider", "source"})

	// SyncRuns counts polling sync attempts per provider and outcome.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notiproof_sync_runs_total",
		Help: "Polling sync runs.",
	}, []string{"provider", "status"})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
