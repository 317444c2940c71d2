package template

import "testing"

func TestSanitizeForPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"fixed becomes absolute",
			`<div style="position: fixed; top: 0"></div>`,
			`<div style="position: absolute; top: 0"></div>`,
		},
		{
			"fixed with odd spacing",
			`<div style="position :  FIXED"></div>`,
			`<div style="position: absolute"></div>`,
		},
		{
			"large z-index capped",
			`<div style="z-index: 2147483647"></div>`,
			`<div style="z-index: 10"></div>`,
		},
		{
			"small z-index untouched",
			`<div style="z-index: 5"></div>`,
			`<div style="z-index: 5"></div>`,
		},
		{
			"z-index at the cap untouched",
			`<div style="z-index: 10"></div>`,
			`<div style="z-index: 10"></div>`,
		},
		{
			"multiple offenders in one document",
			`<div style="position:fixed;z-index:99999"><span style="z-index: 3"></span></div>`,
			`<div style="position: absolute;z-index:10"><span style="z-index: 3"></span></div>`,
		},
		{
			"absolute untouched",
			`<div style="position: absolute"></div>`,
			`<div style="position: absolute"></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForPreview(tt.in); got != tt.want {
				t.Errorf("SanitizeForPreview(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
