// Package api serves the authenticated admin surface: adapter discovery,
// connector management, sync control, event listings and template previews.
// The webhook and widget endpoints live in their own packages; everything
// here sits behind the JWT middleware.
package api

import (
	"context"

	"github.com/gorilla/mux"

	"github.com/notiproof/backend/internal/adapter"
	"github.com/notiproof/backend/internal/connector"
	"github.com/notiproof/backend/internal/event"
	"github.com/notiproof/backend/internal/message"
	"github.com/notiproof/backend/internal/sync"
	"github.com/notiproof/backend/internal/template"
)

// ConnectorStore is the slice of connector persistence the API needs.
type ConnectorStore interface {
	Create(ctx context.Context, c *connector.Connector) error
	Get(ctx context.Context, id string) (*connector.Connector, error)
}

// EventStore is the slice of event persistence the API needs.
type EventStore interface {
	List(ctx context.Context, params event.ListParams) ([]event.Row, error)
	CountByProvider(ctx context.Context, provider string) (int, error)
}

// TemplateStore is the slice of template persistence the API needs.
type TemplateStore interface {
	Get(ctx context.Context, id string) (*template.Config, error)
	ListByProvider(ctx context.Context, provider string) ([]*template.Config, error)
}

// Syncer triggers and inspects connector syncs. Implemented by sync.Service.
type Syncer interface {
	SyncNow(ctx context.Context, connectorID string) (*sync.Result, error)
	Status(ctx context.Context, connectorID string) (*sync.Status, error)
}

// VisitorCounter reports live widget connections per website. Implemented
// by the ws hub.
type VisitorCounter interface {
	Count(websiteID string) int
}

// Handlers bundles the admin API endpoints.
type Handlers struct {
	registry   *adapter.Registry
	connectors ConnectorStore
	events     EventStore
	templates  TemplateStore
	syncer     Syncer
	visitors   VisitorCounter
	generator  *message.Generator
}

// NewHandlers creates the admin API handlers.
func NewHandlers(registry *adapter.Registry, connectors ConnectorStore, events EventStore, templates TemplateStore, syncer Syncer, visitors VisitorCounter, generator *message.Generator) *Handlers {
	return &Handlers{
		registry:   registry,
		connectors: connectors,
		events:     events,
		templates:  templates,
		syncer:     syncer,
		visitors:   visitors,
		generator:  generator,
	}
}

// RegisterRoutes wires the admin endpoints onto the (already authenticated)
// router.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/adapters", h.ListAdapters).Methods("GET")
	r.HandleFunc("/adapters/category/{category}", h.ListAdaptersByCategory).Methods("GET")
	r.HandleFunc("/adapters/{provider}/fields", h.AdapterFields).Methods("GET")
	r.HandleFunc("/adapters/{provider}/sample-events", h.SampleEvents).Methods("GET")

	r.HandleFunc("/connectors", h.CreateConnector).Methods("POST")
	r.HandleFunc("/connectors/{id}/sync", h.TriggerSync).Methods("POST")
	r.HandleFunc("/connectors/{id}/sync-status", h.SyncStatus).Methods("GET")

	r.HandleFunc("/events", h.ListEvents).Methods("GET")

	r.HandleFunc("/templates/{id}/preview", h.PreviewTemplate).Methods("POST")
	r.HandleFunc("/templates/{id}/validate", h.ValidateTemplate).Methods("POST")
	r.HandleFunc("/templates/mapping", h.BuildMapping).Methods("POST")

	r.HandleFunc("/messages/preview", h.PreviewMessage).Methods("POST")

	r.HandleFunc("/websites/{websiteID}/visitors", h.LiveVisitors).Methods("GET")
}
