package adapter

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/notiproof/backend/internal/event"
)

// The native adapters cover events authored inside the product rather than
// pulled from a third party: announcements written by the business,
// live-visitor pulses, and widget form submissions. None of them poll or
// receive webhooks; their events are generated synchronously by the handlers
// that own them.

func nativeSyncConfig() SyncConfig {
	return SyncConfig{PollInterval: 0}
}

// AnnouncementsAdapter normalizes business-authored announcements.
type AnnouncementsAdapter struct{}

func NewAnnouncementsAdapter() *AnnouncementsAdapter { return &AnnouncementsAdapter{} }

func (a *AnnouncementsAdapter) Provider() string       { return "announcements" }
func (a *AnnouncementsAdapter) SyncConfig() SyncConfig { return nativeSyncConfig() }

func (a *AnnouncementsAdapter) AvailableFields() []event.NormalizedField {
	return []event.NormalizedField{
		{Key: "template.title", Label: "Title", Type: event.FieldString, Example: "Spring sale", Required: true},
		{Key: "template.message", Label: "Message", Type: event.FieldString, Example: "20% off everything this week"},
		{Key: "template.cta_url", Label: "Call-to-action URL", Type: event.FieldURL, Example: "https://example.com/sale"},
		{Key: "template.time_ago", Label: "Relative time", Type: event.FieldDate, Example: "just now"},
	}
}

func (a *AnnouncementsAdapter) Normalize(raw json.RawMessage) event.CanonicalEvent {
	var p struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Message   string `json:"message"`
		CTAURL    string `json:"cta_url"`
		CreatedAt string `json:"created_at"`
	}
	_ = json.Unmarshal(raw, &p)

	normalized := map[string]any{}
	ts, when := eventTimestamp(p.CreatedAt)
	normalized["template.time_ago"] = TimeAgo(time.Now(), when, false)
	if p.Title != "" {
		normalized["template.title"] = p.Title
	}
	if p.Message != "" {
		normalized["template.message"] = p.Message
	}
	if p.CTAURL != "" {
		normalized["template.cta_url"] = p.CTAURL
	}

	return event.CanonicalEvent{
		EventID:           nativeEventID("announcement", p.ID),
		Provider:          a.Provider(),
		ProviderEventType: "announcement.published",
		Timestamp:         ts,
		Payload:           raw,
		Normalized:        normalized,
	}
}

func (a *AnnouncementsAdapter) SampleEvents() []event.CanonicalEvent {
	return []event.CanonicalEvent{
		a.Normalize(json.RawMessage(`{"id": "ann-1", "title": "Spring sale", "message": "20% off everything this week", "cta_url": "https://example.com/sale", "created_at": "2024-03-14T08:00:00Z"}`)),
	}
}

// LiveVisitorsAdapter normalizes visitor-count pulses sourced from the
// widget websocket hub.
type LiveVisitorsAdapter struct{}

func NewLiveVisitorsAdapter() *LiveVisitorsAdapter { return &LiveVisitorsAdapter{} }

func (a *LiveVisitorsAdapter) Provider() string       { return "live_visitors" }
func (a *LiveVisitorsAdapter) SyncConfig() SyncConfig { return nativeSyncConfig() }

func (a *LiveVisitorsAdapter) AvailableFields() []event.NormalizedField {
	return []event.NormalizedField{
		{Key: "template.visitor_count", Label: "Visitors", Type: event.FieldNumber, Example: "12", Required: true},
		{Key: "template.page", Label: "Page", Type: event.FieldString, Example: "/pricing"},
		{Key: "template.time_ago", Label: "Relative time", Type: event.FieldDate, Example: "just now"},
	}
}

func (a *LiveVisitorsAdapter) Normalize(raw json.RawMessage) event.CanonicalEvent {
	var p struct {
		ID        string `json:"id"`
		Count     int    `json:"count"`
		Page      string `json:"page"`
		Timestamp string `json:"timestamp"`
	}
	_ = json.Unmarshal(raw, &p)

	normalized := map[string]any{}
	ts, when := eventTimestamp(p.Timestamp)
	normalized["template.time_ago"] = TimeAgo(time.Now(), when, false)
	if p.Count > 0 {
		normalized["template.visitor_count"] = float64(p.Count)
	}
	if p.Page != "" {
		normalized["template.page"] = p.Page
	}

	return event.CanonicalEvent{
		EventID:           nativeEventID("visitors", p.ID),
		Provider:          a.Provider(),
		ProviderEventType: "visitors.pulse",
		Timestamp:         ts,
		Payload:           raw,
		Normalized:        normalized,
	}
}

func (a *LiveVisitorsAdapter) SampleEvents() []event.CanonicalEvent {
	return []event.CanonicalEvent{
		a.Normalize(json.RawMessage(`{"id": "pulse-1", "count": 12, "page": "/pricing", "timestamp": "2024-03-14T10:00:00Z"}`)),
	}
}

// FormHookAdapter normalizes widget form submissions. It also serves the
// legacy instant_capture provider id through the registry alias table.
type FormHookAdapter struct{}

func NewFormHookAdapter() *FormHookAdapter { return &FormHookAdapter{} }

func (a *FormHookAdapter) Provider() string       { return "form_hook" }
func (a *FormHookAdapter) SyncConfig() SyncConfig { return nativeSyncConfig() }

func (a *FormHookAdapter) AvailableFields() []event.NormalizedField {
	return []event.NormalizedField{
		{Key: "template.customer_name", Label: "Name", Type: event.FieldString, Example: "Jane Doe", Required: true},
		{Key: "template.form_name", Label: "Form", Type: event.FieldString, Example: "Newsletter"},
		{Key: "template.location", Label: "Location", Type: event.FieldString, Example: "Cape Town, South Africa"},
		{Key: "template.time_ago", Label: "Relative time", Type: event.FieldDate, Example: "just now"},
	}
}

func (a *FormHookAdapter) Normalize(raw json.RawMessage) event.CanonicalEvent {
	var p struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		FormName    string `json:"form_name"`
		City        string `json:"city"`
		Country     string `json:"country"`
		SubmittedAt string `json:"submitted_at"`
	}
	_ = json.Unmarshal(raw, &p)

	normalized := map[string]any{
		"template.customer_name": CustomerName(p.Name, ""),
	}
	ts, when := eventTimestamp(p.SubmittedAt)
	normalized["template.time_ago"] = TimeAgo(time.Now(), when, false)
	if p.FormName != "" {
		normalized["template.form_name"] = p.FormName
	}
	if loc := Location(p.City, p.Country); loc != "" {
		normalized["template.location"] = loc
	}

	return event.CanonicalEvent{
		EventID:           nativeEventID("form", p.ID),
		Provider:          a.Provider(),
		ProviderEventType: "form.submitted",
		Timestamp:         ts,
		Payload:           raw,
		Normalized:        normalized,
	}
}

func (a *FormHookAdapter) SampleEvents() []event.CanonicalEvent {
	return []event.CanonicalEvent{
		a.Normalize(json.RawMessage(`{"id": "sub-1", "name": "Thandi", "form_name": "Newsletter", "city": "Cape Town", "country": "South Africa", "submitted_at": "2024-03-14T09:45:00Z"}`)),
	}
}

func nativeEventID(kind, sourceID string) string {
	if sourceID != "" {
		return kind + "_" + sourceID
	}
	return kind + "_" + uuid.New().String()
}
