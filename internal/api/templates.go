package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/notiproof/backend/internal/event"
	"github.com/notiproof/backend/internal/httputil"
	"github.com/notiproof/backend/internal/template"
)

// previewRequest is the POST /templates/{id}/preview body. All fields are
// optional; the zero request previews the stored template with defaults.
type previewRequest struct {
	Style        *template.StyleConfig `json:"style,omitempty"`
	IsSimulated  bool                  `json:"is_simulated"`
	IsDemo       bool                  `json:"is_demo"`
	VisitorsMode string                `json:"visitors_mode,omitempty"`
}

// PreviewTemplate handles POST /templates/{id}/preview.
func (h *Handlers) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.loadTemplate(w, r)
	if !ok {
		return
	}

	var req previewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	html := template.RenderPreview(*tmpl, template.PreviewOptions{
		Style: req.Style,
		Badge: template.BadgeOptions{
			IsSimulated:       req.IsSimulated,
			IsDemo:            req.IsDemo,
			VisitorsPulseMode: req.VisitorsMode,
		},
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"template_id": tmpl.ID,
		"html":        html,
	})
}

// validateRequest is the POST /templates/{id}/validate body: the event to
// check the template's required fields against.
type validateRequest struct {
	Event event.CanonicalEvent `json:"event"`
}

// ValidateTemplate handles POST /templates/{id}/validate.
func (h *Handlers) ValidateTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.loadTemplate(w, r)
	if !ok {
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, template.ValidateEventForTemplate(*tmpl, req.Event))
}

// mappingRequest is the POST /templates/mapping body: template HTML plus
// the provider whose fields should be mapped onto its placeholders.
type mappingRequest struct {
	Provider string `json:"provider"`
	HTML     string `json:"html"`
}

// BuildMapping handles POST /templates/mapping. It extracts the template's
// placeholders and proposes a placeholder-to-field mapping using the
// provider's declared fields and the field alias table.
func (h *Handlers) BuildMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a := h.registry.Get(req.Provider)
	if a == nil {
		httputil.WriteError(w, http.StatusNotFound, "unknown provider")
		return
	}

	placeholders := template.ExtractPlaceholders(req.HTML)
	mapping := template.BuildMapping(a.AvailableFields(), placeholders)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"provider":     a.Provider(),
		"placeholders": placeholders,
		"mapping":      mapping,
	})
}

func (h *Handlers) loadTemplate(w http.ResponseWriter, r *http.Request) (*template.Config, bool) {
	id := mux.Vars(r)["id"]
	tmpl, err := h.templates.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, template.ErrTemplateNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "unknown template")
			return nil, false
		}
		log.Printf("api: load template %s failed: %v", id, err)
		httputil.WriteError(w, http.StatusInternalServerError, "template lookup failed")
		return nil, false
	}
	return tmpl, true
}
