package api

import (
	"encoding/json"
	"net/http"

	"github.com/notiproof/backend/internal/httputil"
)

// messagePreviewRequest is the POST /messages/preview body.
type messagePreviewRequest struct {
	BusinessType string            `json:"business_type"`
	EventType    string            `json:"event_type"`
	Data         map[string]string `json:"data"`
}

// PreviewMessage handles POST /messages/preview: the plain-text fallback
// message for an event, as it would appear when no HTML template applies.
func (h *Handlers) PreviewMessage(w http.ResponseWriter, r *http.Request) {
	var req messagePreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.EventType == "" {
		httputil.WriteError(w, http.StatusBadRequest, "event_type is required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message": h.generator.Generate(req.BusinessType, req.EventType, req.Data),
	})
}
