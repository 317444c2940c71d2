package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

// okHandler is a simple handler that returns 200 OK.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func newTestLimiter(t *testing.T) *KeyedLimiter {
	t.Helper()
	l := NewKeyedLimiter()
	t.Cleanup(l.Close)
	return l
}

func TestKeyedLimiter_AllowsWithinLimit(t *testing.T) {
	l := newTestLimiter(t)
	limit := Limit{MaxRequests: 5, Window: time.Minute}

	for i := 0; i < 5; i++ {
		res := l.Check("shopify:shop-a.myshopify.com", limit)
		if !res.Allowed {
			t.Fatalf("request %d: expected allowed", i+1)
		}
	}
}

func TestKeyedLimiter_BlocksOverLimit(t *testing.T) {
	l := newTestLimiter(t)
	limit := Limit{MaxRequests: 2, Window: time.Minute}

	l.Check("webhook:conn-1", limit)
	l.Check("webhook:conn-1", limit)

	res := l.Check("webhook:conn-1", limit)
	if res.Allowed {
		t.Fatal("third request: expected denied")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want > 0", res.RetryAfter)
	}
	if res.RetryAfter > limit.Window {
		t.Errorf("RetryAfter = %v, want <= window %v", res.RetryAfter, limit.Window)
	}
}

func TestKeyedLimiter_IndependentKeys(t *testing.T) {
	l := newTestLimiter(t)
	limit := Limit{MaxRequests: 1, Window: time.Minute}

	if res := l.Check("shopify:shop-a", limit); !res.Allowed {
		t.Fatal("shop-a first request: expected allowed")
	}
	if res := l.Check("shopify:shop-a", limit); res.Allowed {
		t.Fatal("shop-a second request: expected denied")
	}
	if res := l.Check("shopify:shop-b", limit); !res.Allowed {
		t.Error("shop-b first request: expected allowed despite shop-a exhaustion")
	}
}

func TestKeyedLimiter_DeniedRequestDoesNotConsumeToken(t *testing.T) {
	l := newTestLimiter(t)
	limit := Limit{MaxRequests: 1, Window: 50 * time.Millisecond}

	l.Check("k", limit)
	if res := l.Check("k", limit); res.Allowed {
		t.Fatal("second request: expected denied")
	}

	// The denied check reserved and cancelled; after the window refills the
	// bucket a request must succeed again.
	time.Sleep(80 * time.Millisecond)
	if res := l.Check("k", limit); !res.Allowed {
		t.Error("request after refill: expected allowed")
	}
}

// Concurrent checks on shared and fresh keys, alongside the sweep
// goroutine; run under -race this covers the lastSeen bookkeeping.
func TestKeyedLimiter_ConcurrentChecks(t *testing.T) {
	l := newTestLimiter(t)
	limit := Limit{MaxRequests: 1000, Window: time.Minute}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Check("shared", limit)
				l.Check(fmt.Sprintf("worker-%d", i), limit)
			}
		}()
	}
	wg.Wait()

	if res := l.Check("shared", limit); !res.Allowed {
		t.Error("shared key exhausted below its limit")
	}
}

func TestKeyedLimiter_CloseIsIdempotent(t *testing.T) {
	l := NewKeyedLimiter()
	l.Close()
	l.Close()
}

func TestRateLimitMiddleware_BlocksOverLimit(t *testing.T) {
	l := newTestLimiter(t)
	middleware := RateLimitMiddleware(l, Limit{MaxRequests: 2, Window: time.Minute})
	handler := middleware(okHandler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	// Third request should be rate limited.
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rr.Code)
	}

	// Verify JSON error body.
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["error"] != "rate limit exceeded" {
		t.Errorf("expected error 'rate limit exceeded', got %q", body["error"])
	}
}

func TestRateLimitMiddleware_SeparateLimitersPerIP(t *testing.T) {
	l := newTestLimiter(t)
	middleware := RateLimitMiddleware(l, Limit{MaxRequests: 1, Window: time.Minute})
	handler := middleware(okHandler)

	// First IP exhausts its budget.
	req1 := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req1.RemoteAddr = "10.0.0.1:12345"
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)
	if rr1.Code != http.StatusOK {
		t.Fatalf("IP1 first request: expected 200, got %d", rr1.Code)
	}

	req1b := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req1b.RemoteAddr = "10.0.0.1:12345"
	rr1b := httptest.NewRecorder()
	handler.ServeHTTP(rr1b, req1b)
	if rr1b.Code != http.StatusTooManyRequests {
		t.Errorf("IP1 second request: expected 429, got %d", rr1b.Code)
	}

	// Second IP should still be able to make a request.
	req2 := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req2.RemoteAddr = "10.0.0.2:12345"
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusOK {
		t.Errorf("IP2 first request: expected 200, got %d", rr2.Code)
	}
}

func TestRateLimitMiddleware_WithMuxRouter(t *testing.T) {
	l := newTestLimiter(t)
	r := mux.NewRouter()
	r.Use(RateLimitMiddleware(l, Limit{MaxRequests: 1, Window: time.Minute}))
	r.HandleFunc("/api/test", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	req1 := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req1.RemoteAddr = "10.0.0.1:12345"
	rr1 := httptest.NewRecorder()
	r.ServeHTTP(rr1, req1)
	if rr1.Code != http.StatusOK {
		t.Fatalf("mux request 1: expected 200, got %d", rr1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req2.RemoteAddr = "10.0.0.1:12345"
	rr2 := httptest.NewRecorder()
	r.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusTooManyRequests {
		t.Errorf("mux request 2: expected 429, got %d", rr2.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{
			name:       "RemoteAddr with port",
			remoteAddr: "192.168.1.1:8080",
			want:       "192.168.1.1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.168.1.1",
			want:       "192.168.1.1",
		},
		{
			name:       "XFF single IP",
			remoteAddr: "10.0.0.1:1234",
			xff:        "203.0.113.50",
			want:       "203.0.113.50",
		},
		{
			name:       "XFF takes first of multiple IPs",
			remoteAddr: "10.0.0.1:1234",
			xff:        "203.0.113.50, 70.41.3.18, 150.172.238.178",
			want:       "203.0.113.50",
		},
		{
			name:       "XFF with whitespace",
			remoteAddr: "10.0.0.1:1234",
			xff:        "  203.0.113.50  ",
			want:       "203.0.113.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			got := clientIP(req)
			if got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
