package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    3,
		window:   time.Minute,
	}

	for i := 0; i < 3; i++ {
		if !rl.Allow("key") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("key") {
		t.Error("request over limit should be denied")
	}
	if !rl.Allow("other") {
		t.Error("different keys have independent budgets")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    2,
		window:   10 * time.Millisecond,
	}

	rl.Allow("key")
	rl.Allow("key")
	if rl.Allow("key") {
		t.Fatal("limit should be reached")
	}

	time.Sleep(15 * time.Millisecond)
	if !rl.Allow("key") {
		t.Error("budget should recover after the window passes")
	}
}

func TestRateLimitByIPMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2)
	handler := RateLimitByIP(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i, code)
		}
	}
	if code := do("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("over limit: status %d, want 429", code)
	}
	if code := do("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("other client: status %d, want 200", code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		xff        string
		want       string
	}{
		{"10.0.0.1:1234", "", "10.0.0.1"},
		{"10.0.0.1:1234", "203.0.113.7", "203.0.113.7"},
		{"[::1]:1234", "", "::1"},
	}

	for i, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		if got := getClientIP(req); got != tt.want {
			t.Errorf("case %d: getClientIP = %q, want %q", i, got, tt.want)
		}
	}
}

func TestRateLimitByTenantFallsBackToIP(t *testing.T) {
	limiter := NewRateLimiter(1)
	handler := RateLimitByTenant(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status %d, want 429", rec.Code)
	}
}
