package ws

import (
	"net/http"
	"os"
	"strings"
	"sync"
)

var (
	allowedOrigins     []string
	allowedOriginsOnce sync.Once
)

// loadAllowedOrigins reads the ALLOWED_ORIGINS environment variable (comma-
// separated) and caches the result. "*" allows any origin, which is the
// usual production setting since widgets embed on arbitrary customer sites.
// An empty variable defaults to "http://localhost:3000" for local work.
func loadAllowedOrigins() []string {
	allowedOriginsOnce.Do(func() {
		raw := os.Getenv("ALLOWED_ORIGINS")
		if raw == "" {
			raw = "http://localhost:3000"
		}
		for _, o := range strings.Split(raw, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	})
	return allowedOrigins
}

// CheckOrigin validates the Origin header of an incoming request against
// the configured allow list. Used as the CheckOrigin field of the
// gorilla/websocket upgrader.
func CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No Origin header: same-origin request or non-browser client.
		return true
	}
	for _, allowed := range loadAllowedOrigins() {
		if allowed == "*" || strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}
