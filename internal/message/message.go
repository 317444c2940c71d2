// Package message synthesizes notification copy from a template table with
// tiered fallback: the richest template whose data is available wins, and a
// chosen template degrades through its fallback chain before giving up.
package message

import "regexp"

// Template is one message wording for a (business type, event type) pair.
// RequiredData names the fields the primary wording needs; Fallbacks are
// tried in order when the primary cannot be satisfied, and their own
// required variables are extracted from their {var} placeholders.
type Template struct {
	ID           string
	BusinessType string
	EventType    string
	Message      string
	RequiredData []string
	Fallbacks    []string
}

var varRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// ExtractVars returns the {var} placeholder names in a template string.
func ExtractVars(s string) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, m := range varRe.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	return vars
}

// interpolate replaces each {var} whose datum is present and non-empty.
// Unresolved tokens are left in place, not blanked — the final catch-all
// fallback may legitimately ship with some of them.
func interpolate(s string, data map[string]string) string {
	return varRe.ReplaceAllStringFunc(s, func(token string) string {
		name := token[1 : len(token)-1]
		if v, ok := data[name]; ok && v != "" {
			return v
		}
		return token
	})
}

// satisfied reports whether every named field is present and non-empty.
func satisfied(fields []string, data map[string]string) bool {
	for _, f := range fields {
		if data[f] == "" {
			return false
		}
	}
	return true
}

// coverage scores a template by the fraction of its required fields present
// in the data bag. Templates with no requirements score 1.
func coverage(fields []string, data map[string]string) float64 {
	if len(fields) == 0 {
		return 1
	}
	present := 0
	for _, f := range fields {
		if data[f] != "" {
			present++
		}
	}
	return float64(present) / float64(len(fields))
}
