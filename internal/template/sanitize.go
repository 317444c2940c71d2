package template

import (
	"regexp"
	"strconv"
)

// maxPreviewZIndex caps stacking inside admin previews so a template cannot
// sit above the dashboard chrome.
const maxPreviewZIndex = 10

var (
	positionFixedRe = regexp.MustCompile(`(?i)position\s*:\s*fixed`)
	zIndexRe        = regexp.MustCompile(`(?i)(z-index\s*:\s*)(\d+)`)
)

// SanitizeForPreview rewrites rendered widget HTML so that embedding it in
// an admin preview frame is safe: fixed positioning becomes absolute (the
// preview frame is the containing block) and z-index values are capped.
func SanitizeForPreview(html string) string {
	html = positionFixedRe.ReplaceAllString(html, "position: absolute")
	html = zIndexRe.ReplaceAllStringFunc(html, func(match string) string {
		groups := zIndexRe.FindStringSubmatch(match)
		n, err := strconv.Atoi(groups[2])
		if err != nil || n <= maxPreviewZIndex {
			return match
		}
		return groups[1] + strconv.Itoa(maxPreviewZIndex)
	})
	return html
}
