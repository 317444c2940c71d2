package message

import "sort"

// Generator selects and renders the best-fitting message template for a
// (businessType, eventType) pair given a bag of optional data fields. It
// never fails and never returns an empty string.
type Generator struct {
	templates []Template
}

// NewGenerator returns a Generator backed by the builtin template table.
func NewGenerator() *Generator {
	return &Generator{templates: builtinTemplates}
}

// NewGeneratorWith returns a Generator over a custom template table.
func NewGeneratorWith(templates []Template) *Generator {
	return &Generator{templates: templates}
}

// Generate picks the best template for the pair and renders it against the
// data bag.
//
// Selection: among the pair's templates, sorted by declining RequiredData
// length (richest wording first), the first whose required fields are all
// present wins. If none qualifies, every template is scored by the fraction
// of its required fields present and the highest score wins, ties keeping
// the first encountered.
//
// Rendering: the primary wording when satisfiable, else the first fallback
// whose extracted variables are all present, else the LAST fallback
// verbatim — it is the generic catch-all, and any of its unresolved {var}
// tokens are left unreplaced.
func (g *Generator) Generate(businessType, eventType string, data map[string]string) string {
	candidates := g.forPair(businessType, eventType)
	if len(candidates) == 0 {
		return genericMessage(eventType, data)
	}

	tmpl := selectTemplate(candidates, data)
	return renderTemplate(tmpl, data)
}

func (g *Generator) forPair(businessType, eventType string) []Template {
	var out []Template
	for _, t := range g.templates {
		if t.BusinessType == businessType && t.EventType == eventType {
			out = append(out, t)
		}
	}
	return out
}

func selectTemplate(candidates []Template, data map[string]string) Template {
	// Prefer the most specific wording. SliceStable keeps the table order
	// for templates of equal richness.
	sorted := make([]Template, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].RequiredData) > len(sorted[j].RequiredData)
	})

	for _, t := range sorted {
		if satisfied(t.RequiredData, data) {
			return t
		}
	}

	best := sorted[0]
	bestScore := coverage(best.RequiredData, data)
	for _, t := range sorted[1:] {
		if score := coverage(t.RequiredData, data); score > bestScore {
			best, bestScore = t, score
		}
	}
	return best
}

func renderTemplate(t Template, data map[string]string) string {
	if satisfied(t.RequiredData, data) {
		return interpolate(t.Message, data)
	}
	for _, fb := range t.Fallbacks {
		if satisfied(ExtractVars(fb), data) {
			return interpolate(fb, data)
		}
	}
	if len(t.Fallbacks) > 0 {
		// Last fallback is the catch-all, used even with unresolved vars.
		return interpolate(t.Fallbacks[len(t.Fallbacks)-1], data)
	}
	return interpolate(t.Message, data)
}

// genericMessage builds the furthest fallback: a per-event-type verb phrase
// prefixed with whatever subject the data bag can support, location checked
// before name.
func genericMessage(eventType string, data map[string]string) string {
	verb, ok := genericMessages[eventType]
	if !ok {
		verb = genericDefault
	}

	switch {
	case data["location"] != "":
		return "Someone from " + data["location"] + " " + verb
	case data["name"] != "":
		return data["name"] + " " + verb
	default:
		return "Someone " + verb
	}
}
