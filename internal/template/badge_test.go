package template

import "testing"

func TestShouldShowVerificationBadge(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		opts     BadgeOptions
		want     bool
	}{
		{"shopify real event", "shopify", BadgeOptions{}, true},
		{"stripe real event", "stripe", BadgeOptions{}, true},
		{"woocommerce real event", "woocommerce", BadgeOptions{}, true},
		{"testimonials real event", "testimonials", BadgeOptions{}, true},
		{"form hook with underscore", "form_hook", BadgeOptions{}, true},
		{"form hook with hyphen", "form-hook", BadgeOptions{}, true},
		{"form hook uppercase", "FORM_HOOK", BadgeOptions{}, true},

		{"simulated suppresses everything", "shopify", BadgeOptions{IsSimulated: true}, false},
		{"demo suppresses everything", "stripe", BadgeOptions{IsDemo: true}, false},

		{"announcements never badged", "announcements", BadgeOptions{}, false},

		{"live visitors real mode", "live_visitors", BadgeOptions{VisitorsPulseMode: "real"}, true},
		{"live visitors simulated mode", "live_visitors", BadgeOptions{VisitorsPulseMode: "simulated"}, false},
		{"live visitors no mode", "live_visitors", BadgeOptions{}, false},
		{"visitors pulse spelling", "visitors_pulse", BadgeOptions{VisitorsPulseMode: "real"}, true},
		{"live visitors real but simulated flag wins", "live_visitors", BadgeOptions{IsSimulated: true, VisitorsPulseMode: "real"}, false},

		{"unknown provider", "instagram", BadgeOptions{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldShowVerificationBadge(tt.provider, tt.opts); got != tt.want {
				t.Errorf("ShouldShowVerificationBadge(%q, %+v) = %v, want %v", tt.provider, tt.opts, got, tt.want)
			}
		})
	}
}
