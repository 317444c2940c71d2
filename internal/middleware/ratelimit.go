package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// Limit describes one rate-limit policy: at most MaxRequests per Window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Result is the outcome of a limiter check. Reset is when the caller may try
// again; RetryAfter is the same information as a duration, for 429 bodies.
type Result struct {
	Allowed    bool
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// keyEntry holds a token-bucket limiter and the last time it was touched.
// lastSeen is unix nanos, atomic: Check and the sweep goroutine race on it.
type keyEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// KeyedLimiter enforces per-key rate limits (e.g. "shopify:<shop>",
// "webhook:<connectorID>") with a token bucket per key and periodic eviction
// of stale entries. It is an explicit injected component — constructed once
// in main and passed to handlers — so it can be swapped for a distributed
// backend without touching call sites. The in-memory map is not shared
// across instances; a deployment is one rate-limit scope.
type KeyedLimiter struct {
	entries sync.Map
	stopCh  chan struct{}
	once    sync.Once
}

// NewKeyedLimiter creates a limiter and starts its sweep goroutine.
func NewKeyedLimiter() *KeyedLimiter {
	l := &KeyedLimiter{stopCh: make(chan struct{})}
	go l.sweep()
	return l
}

// Check consumes one request against the key's bucket and reports whether it
// was allowed.
func (l *KeyedLimiter) Check(key string, limit Limit) Result {
	now := time.Now()
	entry := l.entry(key, limit, now)

	if entry.limiter.Allow() {
		return Result{
			Allowed:   true,
			Remaining: int(entry.limiter.Tokens()),
			Reset:     now.Add(limit.Window),
		}
	}

	// Reserve to learn when a token frees up, then give it back.
	res := entry.limiter.Reserve()
	delay := res.Delay()
	res.Cancel()
	return Result{
		Allowed:    false,
		Remaining:  0,
		Reset:      now.Add(delay),
		RetryAfter: delay,
	}
}

func (l *KeyedLimiter) entry(key string, limit Limit, now time.Time) *keyEntry {
	if v, ok := l.entries.Load(key); ok {
		e := v.(*keyEntry)
		e.lastSeen.Store(now.UnixNano())
		return e
	}

	rps := float64(limit.MaxRequests) / limit.Window.Seconds()
	e := &keyEntry{limiter: rate.NewLimiter(rate.Limit(rps), limit.MaxRequests)}
	e.lastSeen.Store(now.UnixNano())
	actual, loaded := l.entries.LoadOrStore(key, e)
	if loaded {
		existing := actual.(*keyEntry)
		existing.lastSeen.Store(now.UnixNano())
		return existing
	}
	return e
}

// sweep removes entries that haven't been seen in 3 minutes.
func (l *KeyedLimiter) sweep() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-3 * time.Minute).UnixNano()
			l.entries.Range(func(key, value any) bool {
				if value.(*keyEntry).lastSeen.Load() < cutoff {
					l.entries.Delete(key)
				}
				return true
			})
		case <-l.stopCh:
			return
		}
	}
}

// Close stops the sweep goroutine.
func (l *KeyedLimiter) Close() {
	l.once.Do(func() { close(l.stopCh) })
}

// clientIP extracts the client IP address from the request, checking
// X-Forwarded-For first, then falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For may contain a comma-separated list; take the first.
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port.
		return r.RemoteAddr
	}
	return ip
}

// RateLimitMiddleware returns a gorilla/mux middleware enforcing a per-IP
// limit through the shared keyed limiter, for the admin API surface.
func RateLimitMiddleware(limiter *KeyedLimiter, limit Limit) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Check("ip:"+clientIP(r), limit)
			if !res.Allowed {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
