package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/notiproof/backend/internal/event"
	"github.com/notiproof/backend/internal/httputil"
)

// ListEvents handles GET /events with website_id, connector_id, provider,
// limit and offset query filters.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := event.ListParams{
		WebsiteID:   q.Get("website_id"),
		ConnectorID: q.Get("connector_id"),
		Provider:    q.Get("provider"),
		Limit:       event.DefaultPageSize,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > event.MaxPageSize {
			n = event.MaxPageSize
		}
		params.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		params.Offset = n
	}

	rows, err := h.events.List(r.Context(), params)
	if err != nil {
		log.Printf("api: list events failed: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "event listing failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": rows,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}
