// Package template renders canonical events through Mustache HTML templates:
// flat-to-nested key conversion, style defaults, verification-badge
// injection and safe-preview sanitization.
package template

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"github.com/cbroglie/mustache"

	"github.com/notiproof/backend/internal/event"
)

// Config is one named, versioned HTML template. RequiredFields lists the
// dotted normalized keys the template needs; PreviewJSON carries sample flat
// data for offline previews.
type Config struct {
	ID             string         `json:"id"`
	Provider       string         `json:"provider"`
	TemplateKey    string         `json:"template_key"`
	StyleVariant   string         `json:"style_variant"`
	Category       string         `json:"category"`
	HTMLTemplate   string         `json:"html_template"`
	RequiredFields []string       `json:"required_fields"`
	PreviewJSON    map[string]any `json:"preview_json"`
}

// StyleConfig carries the widget style overrides merged into the render data
// under style.*. Zero values fall back to the defaults below.
type StyleConfig struct {
	FontSize        string `json:"font_size"`
	LinkColor       string `json:"link_color"`
	TextColor       string `json:"text_color"`
	BackgroundColor string `json:"background_color"`
	BorderRadius    string `json:"border_radius"`
	FontFamily      string `json:"font_family"`
	Padding         string `json:"padding"`
	Shadow          string `json:"shadow"`
}

var defaultStyle = StyleConfig{
	FontSize:        "14px",
	LinkColor:       "#667eea",
	TextColor:       "#1a1a1a",
	BackgroundColor: "#ffffff",
	BorderRadius:    "12px",
	FontFamily:      "system-ui",
	Padding:         "12px 16px",
	Shadow:          "0 4px 12px rgba(0, 0, 0, 0.08)",
}

// renderErrorHTML is what a widget receives when rendering fails. A broken
// template must never crash the host page.
const renderErrorHTML = `<div class="notiproof-error" style="display:none"><!-- render failed --></div>`

// Render produces the widget HTML for one event. The event's normalized map
// is merged with the implicit _provider/_event_id/_timestamp keys and the
// style.* keys, converted from flat dotted keys to the nested shape Mustache
// resolves, and rendered. Render never fails: template errors come back as
// an inert error fragment.
func Render(tmpl Config, ev event.CanonicalEvent, style *StyleConfig) string {
	flat := make(map[string]any, len(ev.Normalized)+11)
	for k, v := range ev.Normalized {
		flat[k] = v
	}
	flat["_provider"] = ev.Provider
	flat["_event_id"] = ev.EventID
	flat["_timestamp"] = ev.Timestamp
	mergeStyle(flat, style)

	out, err := mustache.Render(tmpl.HTMLTemplate, Nest(flat))
	if err != nil {
		log.Printf("template: render failed for %s/%s: %v", tmpl.Provider, tmpl.TemplateKey, err)
		return renderErrorHTML
	}
	return out
}

// ValidationResult reports which required fields an event is missing.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
}

// ValidateEventForTemplate checks the template's required fields against the
// event. A field is missing when absent or nil; an empty string counts as
// present.
func ValidateEventForTemplate(tmpl Config, ev event.CanonicalEvent) ValidationResult {
	missing := []string{}
	for _, key := range tmpl.RequiredFields {
		v, ok := ev.Normalized[key]
		if !ok || v == nil {
			missing = append(missing, key)
		}
	}
	return ValidationResult{Valid: len(missing) == 0, Missing: missing}
}

// PreviewOptions adjusts an admin-facing preview render.
type PreviewOptions struct {
	Style *StyleConfig
	Badge BadgeOptions
}

// existingBadgeRe detects badge markup already present in a template source.
// This is deliberately a string search over the source text, not a semantic
// check.
var existingBadgeRe = regexp.MustCompile(`(?i)verified|\{\{#template\.verified\}\}|notiproof-verified`)

// RenderPreview renders a template against its own preview_json (not a live
// event), sanitizes the output so an embedded preview cannot escape its
// frame, and appends the verification badge when policy allows and the
// template does not already carry badge markup.
func RenderPreview(tmpl Config, opts PreviewOptions) string {
	flat := make(map[string]any, len(tmpl.PreviewJSON)+11)
	for k, v := range tmpl.PreviewJSON {
		flat[k] = v
	}
	flat["_provider"] = tmpl.Provider
	flat["_event_id"] = "preview"
	flat["_timestamp"] = ""
	mergeStyle(flat, opts.Style)

	out, err := mustache.Render(tmpl.HTMLTemplate, Nest(flat))
	if err != nil {
		log.Printf("template: preview render failed for %s/%s: %v", tmpl.Provider, tmpl.TemplateKey, err)
		return renderErrorHTML
	}

	out = SanitizeForPreview(out)

	if !existingBadgeRe.MatchString(tmpl.HTMLTemplate) && ShouldShowVerificationBadge(tmpl.Provider, opts.Badge) {
		out = injectBadge(out)
	}
	return out
}

// badgeHTML is the marker asserting the event reflects a real customer
// action.
const badgeHTML = `<span class="notiproof-verified" style="display:inline-flex;align-items:center;gap:2px;font-size:11px;color:#10b981">&#10003; Verified</span>`

// injectBadge inserts the badge before the last closing div so it sits
// inside the notification card, falling back to appending when the rendered
// output has no div at all.
func injectBadge(html string) string {
	idx := strings.LastIndex(html, "</div>")
	if idx == -1 {
		return html + badgeHTML
	}
	return html[:idx] + badgeHTML + html[idx:]
}

// Nest converts a flat dotted-key map into the nested shape the Mustache
// engine resolves: "template.customer_name" becomes
// {"template": {"customer_name": ...}}. Keys without dots stay top-level. A
// leaf value colliding with an existing branch is dropped rather than
// clobbering the subtree.
func Nest(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := root
		ok := true
		for _, part := range parts[:len(parts)-1] {
			child, exists := node[part]
			if !exists {
				next := make(map[string]any)
				node[part] = next
				node = next
				continue
			}
			next, isMap := child.(map[string]any)
			if !isMap {
				ok = false
				break
			}
			node = next
		}
		if !ok {
			continue
		}
		leaf := parts[len(parts)-1]
		if _, exists := node[leaf].(map[string]any); !exists {
			node[leaf] = value
		}
	}
	return root
}

// mergeStyle writes the style.* keys into flat, falling back per field to
// the widget defaults.
func mergeStyle(flat map[string]any, style *StyleConfig) {
	s := defaultStyle
	if style != nil {
		if style.FontSize != "" {
			s.FontSize = style.FontSize
		}
		if style.LinkColor != "" {
			s.LinkColor = style.LinkColor
		}
		if style.TextColor != "" {
			s.TextColor = style.TextColor
		}
		if style.BackgroundColor != "" {
			s.BackgroundColor = style.BackgroundColor
		}
		if style.BorderRadius != "" {
			s.BorderRadius = style.BorderRadius
		}
		if style.FontFamily != "" {
			s.FontFamily = style.FontFamily
		}
		if style.Padding != "" {
			s.Padding = style.Padding
		}
		if style.Shadow != "" {
			s.Shadow = style.Shadow
		}
	}
	flat["style.font_size"] = s.FontSize
	flat["style.link_color"] = s.LinkColor
	flat["style.text_color"] = s.TextColor
	flat["style.background_color"] = s.BackgroundColor
	flat["style.border_radius"] = s.BorderRadius
	flat["style.font_family"] = s.FontFamily
	flat["style.padding"] = s.Padding
	flat["style.shadow"] = s.Shadow
}

// DecodeConfig decodes a stored template row's JSON columns.
func DecodeConfig(requiredFields, previewJSON []byte, into *Config) error {
	if len(requiredFields) > 0 {
		if err := json.Unmarshal(requiredFields, &into.RequiredFields); err != nil {
			return err
		}
	}
	if len(previewJSON) > 0 {
		if err := json.Unmarshal(previewJSON, &into.PreviewJSON); err != nil {
			return err
		}
	}
	return nil
}
