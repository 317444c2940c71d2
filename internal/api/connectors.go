package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/notiproof/backend/internal/connector"
	"github.com/notiproof/backend/internal/httputil"
	"github.com/notiproof/backend/internal/sync"
)

// createConnectorRequest is the POST /connectors body. Config is the
// provider-specific blob validated by the typed config shapes.
type createConnectorRequest struct {
	Provider    string          `json:"provider"`
	WebsiteID   string          `json:"website_id"`
	ProviderKey string          `json:"provider_key"`
	Config      json.RawMessage `json:"config"`
}

// CreateConnector handles POST /connectors.
func (h *Handlers) CreateConnector(w http.ResponseWriter, r *http.Request) {
	var req createConnectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Provider == "" || req.WebsiteID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "provider and website_id are required")
		return
	}
	if !h.registry.Has(req.Provider) {
		httputil.WriteError(w, http.StatusBadRequest, "unknown provider")
		return
	}

	// ID and CreatedAt come back from the store's RETURNING clause.
	c := &connector.Connector{
		Provider:    req.Provider,
		WebsiteID:   req.WebsiteID,
		ProviderKey: req.ProviderKey,
		Config:      req.Config,
	}
	if err := h.connectors.Create(r.Context(), c); err != nil {
		log.Printf("api: create connector failed: %v", err)
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

// TriggerSync handles POST /connectors/{id}/sync. A run that completes with
// adapter-level errors still returns 200 with the failure detail in the
// body; only unknown connectors and unsupported providers are HTTP errors.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res, err := h.syncer.SyncNow(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, connector.ErrConnectorNotFound):
			httputil.WriteError(w, http.StatusNotFound, "unknown connector")
		case errors.Is(err, sync.ErrAdapterNotFound), errors.Is(err, sync.ErrPollingUnsupported):
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("api: sync %s failed: %v", id, err)
			httputil.WriteError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// SyncStatus handles GET /connectors/{id}/sync-status.
func (h *Handlers) SyncStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := h.syncer.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, connector.ErrConnectorNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "unknown connector")
			return
		}
		log.Printf("api: sync status %s failed: %v", id, err)
		httputil.WriteError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}
