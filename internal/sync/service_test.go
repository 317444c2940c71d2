package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/notiproof/backend/internal/adapter"
	"github.com/notiproof/backend/internal/connector"
	"github.com/notiproof/backend/internal/event"
)

// pollAdapter is a pollable test adapter whose fetch behavior is scripted
// per test.
type pollAdapter struct {
	provider string
	cfg      adapter.SyncConfig
	events   []event.CanonicalEvent
	fetchErr error
	panics   bool
	lastOpts adapter.FetchOptions
}

func (a *pollAdapter) Provider() string                         { return a.provider }
func (a *pollAdapter) AvailableFields() []event.NormalizedField { return nil }
func (a *pollAdapter) SampleEvents() []event.CanonicalEvent     { return nil }
func (a *pollAdapter) SyncConfig() adapter.SyncConfig           { return a.cfg }

func (a *pollAdapter) Normalize(raw json.RawMessage) event.CanonicalEvent {
	return event.CanonicalEvent{Provider: a.provider, Payload: raw}
}

func (a *pollAdapter) FetchEvents(ctx context.Context, connectorID string, opts adapter.FetchOptions) ([]event.CanonicalEvent, error) {
	a.lastOpts = opts
	if a.panics {
		panic("fetch exploded")
	}
	return a.events, a.fetchErr
}

// pushAdapter declares webhook-only ingestion.
type pushAdapter struct{ pollAdapter }

func (a *pushAdapter) SyncConfig() adapter.SyncConfig {
	return adapter.SyncConfig{SupportsWebhook: true}
}

type fakeConnectorStore struct {
	conns       map[string]*connector.Connector
	lastSyncID  string
	lastStatus  *connector.SyncStatus
	updateCalls int
}

func (f *fakeConnectorStore) Get(ctx context.Context, id string) (*connector.Connector, error) {
	if c, ok := f.conns[id]; ok {
		return c, nil
	}
	return nil, connector.ErrConnectorNotFound
}

func (f *fakeConnectorStore) UpdateSyncState(ctx context.Context, id string, lastSync time.Time, status connector.SyncStatus) error {
	f.lastSyncID = id
	f.lastStatus = &status
	f.updateCalls++
	return nil
}

type fakeEventStore struct {
	rows      []event.Row
	inserted  int  // forced return when >= 0
	insertErr error
	count     int
}

func (f *fakeEventStore) InsertIgnoreDuplicates(ctx context.Context, rows []event.Row) (int, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.rows = append(f.rows, rows...)
	if f.inserted >= 0 {
		return f.inserted, nil
	}
	return len(rows), nil
}

func (f *fakeEventStore) CountByConnector(ctx context.Context, connectorID string) (int, error) {
	return f.count, nil
}

func testimonialEvents(n int) []event.CanonicalEvent {
	evs := make([]event.CanonicalEvent, n)
	for i := range evs {
		evs[i] = event.CanonicalEvent{
			EventID:           fmt.Sprintf("testimonial_%d", i+1),
			Provider:          "testimonials",
			ProviderEventType: "testimonial.approved",
			Timestamp:         "2026-03-15T10:00:00Z",
		}
	}
	return evs
}

func newSyncFixture(a adapter.Adapter) (*Service, *fakeConnectorStore, *fakeEventStore) {
	registry := adapter.NewRegistry()
	registry.Register(a)
	conns := &fakeConnectorStore{conns: map[string]*connector.Connector{
		"c1": {ID: "c1", WebsiteID: "w1", Provider: a.Provider()},
	}}
	events := &fakeEventStore{inserted: -1}
	return NewService(registry, conns, events), conns, events
}

func TestSyncNowSuccess(t *testing.T) {
	a := &pollAdapter{
		provider: "testimonials",
		cfg:      adapter.SyncConfig{SupportsPolling: true, MaxEventsPerSync: 50},
		events:   testimonialEvents(3),
	}
	svc, conns, events := newSyncFixture(a)

	res, err := svc.SyncNow(context.Background(), "c1")
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if !res.Success || res.EventsSynced != 3 || res.EventsSkipped != 0 {
		t.Errorf("result %+v", res)
	}
	if res.LastSyncAt == nil {
		t.Error("LastSyncAt not set")
	}
	if len(events.rows) != 3 {
		t.Fatalf("persisted %d rows", len(events.rows))
	}
	if events.rows[0].ConnectorID != "c1" || events.rows[0].WebsiteID != "w1" {
		t.Errorf("row binding %+v", events.rows[0])
	}
	if conns.lastStatus == nil || !conns.lastStatus.Success || conns.lastStatus.EventsSynced != 3 {
		t.Errorf("sync state %+v", conns.lastStatus)
	}
}

func TestSyncNowCountsSkippedDuplicates(t *testing.T) {
	a := &pollAdapter{
		provider: "testimonials",
		cfg:      adapter.SyncConfig{SupportsPolling: true, MaxEventsPerSync: 50},
		events:   testimonialEvents(5),
	}
	svc, _, events := newSyncFixture(a)
	events.inserted = 2 // three of the five already present

	res, err := svc.SyncNow(context.Background(), "c1")
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if !res.Success || res.EventsSynced != 2 || res.EventsSkipped != 3 {
		t.Errorf("result %+v", res)
	}
}

func TestSyncNowTruncatesOverLimitFetch(t *testing.T) {
	a := &pollAdapter{
		provider: "testimonials",
		cfg:      adapter.SyncConfig{SupportsPolling: true, MaxEventsPerSync: 2},
		events:   testimonialEvents(5),
	}
	svc, _, events := newSyncFixture(a)

	res, err := svc.SyncNow(context.Background(), "c1")
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if res.EventsSynced != 2 || len(events.rows) != 2 {
		t.Errorf("result %+v, rows %d", res, len(events.rows))
	}
	if a.lastOpts.Limit != 2 {
		t.Errorf("fetch limit %d", a.lastOpts.Limit)
	}
}

func TestSyncNowPassesSinceFromLastSync(t *testing.T) {
	a := &pollAdapter{
		provider: "testimonials",
		cfg:      adapter.SyncConfig{SupportsPolling: true},
	}
	svc, conns, _ := newSyncFixture(a)
	last := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	conns.conns["c1"].LastSync = &last

	if _, err := svc.SyncNow(context.Background(), "c1"); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if !a.lastOpts.Since.Equal(last) {
		t.Errorf("since %v, want %v", a.lastOpts.Since, last)
	}
}

func TestSyncNowAdapterErrorIsFailedRun(t *testing.T) {
	a := &pollAdapter{
		provider: "testimonials",
		cfg:      adapter.SyncConfig{SupportsPolling: true},
		fetchErr: errors.New("upstream timeout"),
	}
	svc, conns, _ := newSyncFixture(a)

	res, err := svc.SyncNow(context.Background(), "c1")
	if err != nil {
		t.Fatalf("adapter failures must not surface as transport errors: %v", err)
	}
	if res.Success || len(res.Errors) == 0 {
		t.Errorf("result %+v", res)
	}
	// The failed run is still recorded on the connector.
	if conns.updateCalls != 1 || conns.lastStatus.Success {
		t.Errorf("sync state not recorded: calls=%d status=%+v", conns.updateCalls, conns.lastStatus)
	}
	if conns.lastStatus.Error != "upstream timeout" {
		t.Errorf("status error %q", conns.lastStatus.Error)
	}
}

func TestSyncNowRecoversAdapterPanic(t *testing.T) {
	a := &pollAdapter{
		provider: "testimonials",
		cfg:      adapter.SyncConfig{SupportsPolling: true},
		panics:   true,
	}
	svc, conns, _ := newSyncFixture(a)

	res, err := svc.SyncNow(context.Background(), "c1")
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if res.Success || len(res.Errors) == 0 {
		t.Errorf("result %+v", res)
	}
	if conns.updateCalls != 1 {
		t.Error("sync state not recorded after panic")
	}
}

func TestSyncNowUnknownConnector(t *testing.T) {
	a := &pollAdapter{provider: "testimonials", cfg: adapter.SyncConfig{SupportsPolling: true}}
	svc, _, _ := newSyncFixture(a)

	if _, err := svc.SyncNow(context.Background(), "nope"); !errors.Is(err, connector.ErrConnectorNotFound) {
		t.Errorf("got %v", err)
	}
}

func TestSyncNowUnknownAdapter(t *testing.T) {
	a := &pollAdapter{provider: "testimonials", cfg: adapter.SyncConfig{SupportsPolling: true}}
	svc, conns, _ := newSyncFixture(a)
	conns.conns["c2"] = &connector.Connector{ID: "c2", Provider: "mystery"}

	if _, err := svc.SyncNow(context.Background(), "c2"); !errors.Is(err, ErrAdapterNotFound) {
		t.Errorf("got %v", err)
	}
}

func TestSyncNowWebhookOnlyProvider(t *testing.T) {
	a := &pushAdapter{pollAdapter{provider: "shopify"}}
	svc, _, _ := newSyncFixture(a)

	if _, err := svc.SyncNow(context.Background(), "c1"); !errors.Is(err, ErrPollingUnsupported) {
		t.Errorf("got %v", err)
	}
}

func TestStatus(t *testing.T) {
	a := &pollAdapter{provider: "testimonials", cfg: adapter.SyncConfig{SupportsPolling: true}}
	svc, conns, events := newSyncFixture(a)
	last := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	conns.conns["c1"].LastSync = &last
	conns.conns["c1"].LastSyncStatus = json.RawMessage(`{"success":true}`)
	events.count = 17

	st, err := svc.Status(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Provider != "testimonials" || st.EventCount != 17 || !st.CanSync {
		t.Errorf("status %+v", st)
	}
	if st.LastSync == nil || !st.LastSync.Equal(last) {
		t.Errorf("last sync %v", st.LastSync)
	}
	if st.LastStatus == nil {
		t.Error("last status missing")
	}
}

func TestStatusWebhookOnlyStillSyncable(t *testing.T) {
	// Sync is possible through either ingestion path, so a push-only
	// provider reports CanSync too.
	a := &pushAdapter{pollAdapter{provider: "shopify"}}
	svc, _, _ := newSyncFixture(a)

	st, err := svc.Status(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.CanSync {
		t.Error("webhook-only provider reported CanSync=false")
	}
}

func TestStatusNoIngestionPathCannotSync(t *testing.T) {
	a := &pollAdapter{provider: "announcements"} // zero SyncConfig: no polling, no webhook
	svc, _, _ := newSyncFixture(a)

	st, err := svc.Status(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.CanSync {
		t.Error("provider with no ingestion path reported syncable")
	}
}
