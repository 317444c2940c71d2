package template

import (
	"regexp"

	"github.com/notiproof/backend/internal/event"
)

// fieldAliases maps canonical normalized keys to the alternate placeholder
// names templates have historically used. The table is fixed at build time;
// reverse lookups go through aliasToCanonical built below.
var fieldAliases = map[string][]string{
	"template.customer_name": {"template.name", "template.customer", "template.buyer_name"},
	"template.product_name":  {"template.product", "template.item_name"},
	"template.amount":        {"template.price", "template.total"},
	"template.location":      {"template.city", "template.place"},
	"template.time_ago":      {"template.time", "template.when"},
	"template.review_text":   {"template.review", "template.message_text"},
	"template.rating":        {"template.score"},
}

var aliasToCanonical = buildAliasIndex()

func buildAliasIndex() map[string]string {
	idx := make(map[string]string)
	for canonical, aliases := range fieldAliases {
		for _, alias := range aliases {
			idx[alias] = canonical
		}
	}
	return idx
}

// placeholderRe matches {{key}}, {{#key}}, {{^key}} and {{/key}} forms.
var placeholderRe = regexp.MustCompile(`\{\{\s*([#^/]?)\s*([^}\s]+)\s*\}\}`)

// ExtractPlaceholders scans a template source for Mustache placeholders and
// returns the unique inner key names in first-seen order, with the section
// markers stripped.
func ExtractPlaceholders(html string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range placeholderRe.FindAllStringSubmatch(html, -1) {
		key := m[2]
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// BuildMapping pairs each template placeholder with an adapter field. For
// each placeholder the match order is: exact key, then the placeholder as a
// known alias of a canonical field, then the placeholder as a canonical key
// whose alias the adapter exposes. The order matters — later-registered
// aliases could shadow earlier matches if it changed. Placeholders with no
// match stay unmapped.
func BuildMapping(adapterFields []event.NormalizedField, placeholders []string) map[string]string {
	fieldSet := make(map[string]bool, len(adapterFields))
	for _, f := range adapterFields {
		fieldSet[f.Key] = true
	}

	mapping := make(map[string]string)
	for _, ph := range placeholders {
		if fieldSet[ph] {
			mapping[ph] = ph
			continue
		}
		if canonical, ok := aliasToCanonical[ph]; ok && fieldSet[canonical] {
			mapping[ph] = canonical
			continue
		}
		if aliases, ok := fieldAliases[ph]; ok {
			for _, alias := range aliases {
				if fieldSet[alias] {
					mapping[ph] = alias
					break
				}
			}
		}
	}
	return mapping
}

// ApplyMapping projects event data through a placeholder-to-field mapping.
// Unmapped placeholders are simply absent from the result, not null-filled.
func ApplyMapping(eventData map[string]any, mapping map[string]string) map[string]any {
	mapped := make(map[string]any, len(mapping))
	for placeholder, field := range mapping {
		if v, ok := eventData[field]; ok {
			mapped[placeholder] = v
		}
	}
	return mapped
}
