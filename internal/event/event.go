package event

import (
	"encoding/json"
	"time"
)

// FieldType classifies a normalized field for UI and mapping assistance.
// It is declarative only; the template engine does not enforce it.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldNumber   FieldType = "number"
	FieldBoolean  FieldType = "boolean"
	FieldDate     FieldType = "date"
	FieldCurrency FieldType = "currency"
	FieldURL      FieldType = "url"
	FieldImage    FieldType = "image"
)

// NormalizedField describes one key an adapter can populate in
// CanonicalEvent.Normalized.
type NormalizedField struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Example     string    `json:"example,omitempty"`
	Required    bool      `json:"required"`
}

// CanonicalEvent is the normalized, provider-agnostic event record produced
// by adapters and consumed by the template engine and the storage layer.
// The JSON shape is a frozen interchange contract; consumers outside this
// module must not rely on anything beyond it.
//
// Normalized maps flat dotted keys (template.*, meta.*, plus the implicit
// underscore keys added at render time) to scalar values. A key absent from
// the map means the source did not carry the field. Payload retains the raw
// provider object for audit and debugging and is never rendered.
type CanonicalEvent struct {
	EventID           string          `json:"event_id"`
	Provider          string          `json:"provider"`
	ProviderEventType string          `json:"provider_event_type"`
	Timestamp         string          `json:"timestamp"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	Normalized        map[string]any  `json:"normalized"`
}

// Field returns the normalized value for key, or nil if the source did not
// provide it.
func (e CanonicalEvent) Field(key string) any {
	if e.Normalized == nil {
		return nil
	}
	return e.Normalized[key]
}

// Row is the persistence shape of a canonical event. ExternalID carries the
// provider-side identifier used for storage-level de-duplication.
type Row struct {
	ID                string          `json:"id"`
	ConnectorID       string          `json:"connector_id,omitempty"`
	WebsiteID         string          `json:"website_id,omitempty"`
	Provider          string          `json:"provider"`
	ProviderEventType string          `json:"provider_event_type"`
	ExternalID        string          `json:"external_id"`
	EventTimestamp    time.Time       `json:"event_timestamp"`
	Payload           json.RawMessage `json:"-"`
	Normalized        map[string]any  `json:"normalized"`
	RenderedHTML      string          `json:"rendered_html,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// RowFromCanonical converts an adapter-produced event into a storage row.
// The event timestamp falls back to now when the adapter could not parse a
// source-provided time.
func RowFromCanonical(ev CanonicalEvent, connectorID, websiteID, externalID string) Row {
	ts, err := time.Parse(time.RFC3339, ev.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	return Row{
		ConnectorID:       connectorID,
		WebsiteID:         websiteID,
		Provider:          ev.Provider,
		ProviderEventType: ev.ProviderEventType,
		ExternalID:        externalID,
		EventTimestamp:    ts,
		Payload:           ev.Payload,
		Normalized:        ev.Normalized,
	}
}
