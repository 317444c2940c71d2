package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/notiproof/backend/internal/adapter"
	"github.com/notiproof/backend/internal/httputil"
)

// adapterInfo is the discovery view of one adapter.
type adapterInfo struct {
	Provider   string             `json:"provider"`
	Aliases    []string           `json:"aliases,omitempty"`
	SyncConfig adapter.SyncConfig `json:"sync_config"`
	FieldCount int                `json:"field_count"`
}

func describeAdapter(a adapter.Adapter) adapterInfo {
	return adapterInfo{
		Provider:   a.Provider(),
		Aliases:    adapter.AliasesFor(a.Provider()),
		SyncConfig: a.SyncConfig(),
		FieldCount: len(a.AvailableFields()),
	}
}

// ListAdapters handles GET /adapters, with an optional ?category= filter.
func (h *Handlers) ListAdapters(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	if category := r.URL.Query().Get("category"); category != "" {
		all = h.registry.ByCategory(category)
	}
	infos := make([]adapterInfo, 0, len(all))
	for _, a := range all {
		infos = append(infos, describeAdapter(a))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"adapters": infos})
}

// ListAdaptersByCategory handles GET /adapters/category/{category}. An
// unknown category is an empty list, not an error: categories are a UI
// grouping, not a validation surface.
func (h *Handlers) ListAdaptersByCategory(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	matched := h.registry.ByCategory(category)
	infos := make([]adapterInfo, 0, len(matched))
	for _, a := range matched {
		infos = append(infos, describeAdapter(a))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"category": category, "adapters": infos})
}

// AdapterFields handles GET /adapters/{provider}/fields, the field catalog
// the template editor offers for placeholder completion.
func (h *Handlers) AdapterFields(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	a := h.registry.Get(provider)
	if a == nil {
		httputil.WriteError(w, http.StatusNotFound, "unknown provider")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"provider": a.Provider(),
		"fields":   a.AvailableFields(),
	})
}

// SampleEvents handles GET /adapters/{provider}/sample-events.
func (h *Handlers) SampleEvents(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	a := h.registry.Get(provider)
	if a == nil {
		httputil.WriteError(w, http.StatusNotFound, "unknown provider")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"provider": a.Provider(),
		"events":   a.SampleEvents(),
	})
}

// LiveVisitors handles GET /websites/{websiteID}/visitors, the live count
// backing the visitors pulse display.
func (h *Handlers) LiveVisitors(w http.ResponseWriter, r *http.Request) {
	websiteID := mux.Vars(r)["websiteID"]
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"website_id": websiteID,
		"visitors":   h.visitors.Count(websiteID),
	})
}
