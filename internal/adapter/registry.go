package adapter

import "log"

// providerAliases maps legacy provider names to canonical adapter ids.
// Resolution is one-directional and terminates in exactly one hop; the table
// is fixed at build time, so no chained aliases can exist.
var providerAliases = map[string]string{
	"instant_capture": "form_hook",
	"active_visitors": "live_visitors",
}

// ResolveProviderAlias maps a legacy provider name to its canonical id.
// Unknown and already-canonical names pass through unchanged, which makes
// the function idempotent.
func ResolveProviderAlias(provider string) string {
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// AliasesFor is the reverse index: the legacy names that resolve to the
// given canonical provider id.
func AliasesFor(provider string) []string {
	var aliases []string
	for alias, canonical := range providerAliases {
		if canonical == provider {
			aliases = append(aliases, alias)
		}
	}
	return aliases
}

// categoryProviders groups canonical provider ids for UI filtering. The
// "all" category is handled specially by ByCategory. "social" is reserved
// for the Instagram integration and currently empty.
var categoryProviders = map[string][]string{
	"ecommerce":   {"shopify", "stripe", "woocommerce"},
	"testimonial": {"testimonials"},
	"native":      {"announcements", "live_visitors", "form_hook"},
	"social":      {},
}

// Registry is the central lookup from provider id to adapter instance.
// Adapters are registered once at process start; the registry is read-only
// afterwards, so lookups need no locking.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register inserts an adapter under its canonical provider id. Overwriting
// an existing registration is logged, not an error.
func (r *Registry) Register(a Adapter) {
	provider := a.Provider()
	if _, exists := r.adapters[provider]; exists {
		log.Printf("adapter: overwriting registration for provider %q", provider)
	} else {
		r.order = append(r.order, provider)
	}
	r.adapters[provider] = a
}

// Get looks up an adapter by provider id, retrying once through the alias
// table on a miss. It returns nil when the provider is unknown.
func (r *Registry) Get(provider string) Adapter {
	if a, ok := r.adapters[provider]; ok {
		return a
	}
	if a, ok := r.adapters[ResolveProviderAlias(provider)]; ok {
		return a
	}
	return nil
}

// Has reports whether a provider id (or one of its aliases) is registered.
func (r *Registry) Has(provider string) bool {
	return r.Get(provider) != nil
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, provider := range r.order {
		out = append(out, r.adapters[provider])
	}
	return out
}

// ByCategory returns the adapters in the given category. "all" returns the
// full list; an unknown category yields an empty list, not an error.
func (r *Registry) ByCategory(category string) []Adapter {
	if category == "all" {
		return r.All()
	}
	providers, ok := categoryProviders[category]
	if !ok {
		return []Adapter{}
	}
	out := make([]Adapter, 0, len(providers))
	for _, provider := range providers {
		if a, ok := r.adapters[provider]; ok {
			out = append(out, a)
		}
	}
	return out
}
