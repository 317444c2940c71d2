package template

import "strings"

// BadgeOptions carries the context the badge policy needs.
type BadgeOptions struct {
	IsSimulated       bool   `json:"is_simulated"`
	IsDemo            bool   `json:"is_demo"`
	VisitorsPulseMode string `json:"visitors_pulse_mode,omitempty"` // "real" | "simulated"
}

// verifiedProviders are the sources whose events reflect a real customer
// action and therefore earn the badge by default.
var verifiedProviders = map[string]bool{
	"shopify":      true,
	"stripe":       true,
	"woocommerce":  true,
	"testimonials": true,
	"formhook":     true,
}

// ShouldShowVerificationBadge decides badge eligibility for a provider.
// The simulated/demo suppression is checked first and overrides every
// provider-specific rule below it.
func ShouldShowVerificationBadge(provider string, opts BadgeOptions) bool {
	if opts.IsSimulated || opts.IsDemo {
		return false
	}

	p := strings.ToLower(provider)
	p = strings.ReplaceAll(p, "_", "")
	p = strings.ReplaceAll(p, "-", "")

	switch p {
	case "announcements":
		// Business-authored content, not a customer action.
		return false
	case "livevisitors", "visitorspulse":
		return opts.VisitorsPulseMode == "real"
	}

	return verifiedProviders[p]
}
