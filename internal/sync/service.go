// Package sync pulls events from providers that support polling and records
// per-connector sync state. The webhook path is push; this is the pull
// counterpart for sources like the testimonials store.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/notiproof/backend/internal/adapter"
	"github.com/notiproof/backend/internal/connector"
	"github.com/notiproof/backend/internal/event"
	"github.com/notiproof/backend/internal/metrics"
)

// ErrAdapterNotFound means the connector references a provider with no
// registered adapter.
var ErrAdapterNotFound = errors.New("sync: adapter not found")

// ErrPollingUnsupported means the provider only ingests via webhooks.
var ErrPollingUnsupported = errors.New("sync: provider does not support polling")

// ConnectorStore is the slice of connector persistence the service needs.
type ConnectorStore interface {
	Get(ctx context.Context, id string) (*connector.Connector, error)
	UpdateSyncState(ctx context.Context, id string, lastSync time.Time, status connector.SyncStatus) error
}

// EventStore is the slice of event persistence the service needs.
type EventStore interface {
	InsertIgnoreDuplicates(ctx context.Context, rows []event.Row) (int, error)
	CountByConnector(ctx context.Context, connectorID string) (int, error)
}

// Result reports one sync run. Errors is non-empty exactly when Success is
// false; a run that fetched zero events is still a success.
type Result struct {
	Success       bool       `json:"success"`
	Provider      string     `json:"provider"`
	EventsSynced  int        `json:"events_synced"`
	EventsSkipped int        `json:"events_skipped"`
	Errors        []string   `json:"errors,omitempty"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
}

// Status is the read-only view of a connector's sync state.
type Status struct {
	Provider   string     `json:"provider"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
	LastStatus any        `json:"last_status,omitempty"`
	EventCount int        `json:"event_count"`
	CanSync    bool       `json:"can_sync"`
}

// Service runs pull syncs for connectors.
type Service struct {
	registry   *adapter.Registry
	connectors ConnectorStore
	events     EventStore
	now        func() time.Time
}

// NewService creates a sync Service.
func NewService(registry *adapter.Registry, connectors ConnectorStore, events EventStore) *Service {
	return &Service{registry: registry, connectors: connectors, events: events, now: time.Now}
}

// SyncNow runs one sync for the connector. Adapter fetch panics are
// recovered and reported as a failed run; whatever happens, the connector's
// sync state is updated so the failure is visible from the status endpoint.
func (s *Service) SyncNow(ctx context.Context, connectorID string) (*Result, error) {
	conn, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return nil, err
	}

	a := s.registry.Get(conn.Provider)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, conn.Provider)
	}
	cfg := a.SyncConfig()
	if !cfg.SupportsPolling {
		return nil, fmt.Errorf("%w: %s", ErrPollingUnsupported, a.Provider())
	}
	fetcher, ok := a.(adapter.Fetcher)
	if !ok {
		return nil, fmt.Errorf("%w: %s declares polling but cannot fetch", ErrPollingUnsupported, a.Provider())
	}

	res := &Result{Provider: a.Provider()}
	s.run(ctx, fetcher, cfg, conn, res)

	syncedAt := s.now()
	res.LastSyncAt = &syncedAt
	status := connector.SyncStatus{
		Success:      res.Success,
		EventsSynced: res.EventsSynced,
		Timestamp:    syncedAt,
	}
	if len(res.Errors) > 0 {
		status.Error = res.Errors[0]
	}
	if err := s.connectors.UpdateSyncState(ctx, conn.ID, syncedAt, status); err != nil {
		log.Printf("sync: update sync state for %s failed: %v", conn.ID, err)
	}

	outcome := "success"
	if !res.Success {
		outcome = "failure"
	}
	metrics.SyncRuns.WithLabelValues(res.Provider, outcome).Inc()
	return res, nil
}

// run performs the fetch+insert and fills res. Split out so the recover
// covers exactly the adapter-facing section.
func (s *Service) run(ctx context.Context, fetcher adapter.Fetcher, cfg adapter.SyncConfig, conn *connector.Connector, res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Errors = append(res.Errors, fmt.Sprintf("adapter panic: %v", r))
		}
	}()

	opts := adapter.FetchOptions{Limit: cfg.MaxEventsPerSync}
	if conn.LastSync != nil {
		opts.Since = *conn.LastSync
	}

	evs, err := fetcher.FetchEvents(ctx, conn.ID, opts)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return
	}
	if cfg.MaxEventsPerSync > 0 && len(evs) > cfg.MaxEventsPerSync {
		evs = evs[:cfg.MaxEventsPerSync]
	}

	rows := make([]event.Row, 0, len(evs))
	for _, ev := range evs {
		rows = append(rows, event.RowFromCanonical(ev, conn.ID, conn.WebsiteID, ev.EventID))
	}

	inserted, err := s.events.InsertIgnoreDuplicates(ctx, rows)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return
	}
	res.Success = true
	res.EventsSynced = inserted
	res.EventsSkipped = len(evs) - inserted
	metrics.EventsIngested.WithLabelValues(res.Provider, "sync").Add(float64(inserted))
}

// Status reports the connector's sync state without running a sync.
func (s *Service) Status(ctx context.Context, connectorID string) (*Status, error) {
	conn, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		return nil, err
	}

	count, err := s.events.CountByConnector(ctx, conn.ID)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Provider:   conn.Provider,
		LastSync:   conn.LastSync,
		EventCount: count,
	}
	if len(conn.LastSyncStatus) > 0 {
		st.LastStatus = conn.LastSyncStatus
	}
	if a := s.registry.Get(conn.Provider); a != nil {
		// Webhook-only providers still ingest; sync is possible through
		// either path.
		cfg := a.SyncConfig()
		st.CanSync = cfg.SupportsPolling || cfg.SupportsWebhook
	}
	return st, nil
}
