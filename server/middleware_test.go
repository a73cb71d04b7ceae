package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		path         string
		expectedCost int64
	}{
		{"/metrics", 0},
		{"/health", 5},
		{"/report", 20},
		{"/unknown", 20},
		{"/", 20},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if cost := getTokenCost(req); cost != tt.expectedCost {
				t.Errorf("getTokenCost(%s) = %d, want %d", tt.path, cost, tt.expectedCost)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		expected   string
	}{
		{"192.168.1.10:5432", "192.168.1.10"},
		{"[::1]:8000", "::1"},
		{"10.0.0.7", "10.0.0.7"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := clientIP(req); got != tt.expected {
			t.Errorf("clientIP(%s) = %s, want %s", tt.remoteAddr, got, tt.expected)
		}
	}
}

func TestRateLimiter_SameClientSharesBucket(t *testing.T) {
	rl := NewRateLimiter()

	a := rl.getBucket("10.0.0.1")
	b := rl.getBucket("10.0.0.1")
	c := rl.getBucket("10.0.0.2")

	if a != b {
		t.Error("Same client should reuse its bucket")
	}
	if a == c {
		t.Error("Different clients should get different buckets")
	}
	if a.Capacity() != bucketCapacity {
		t.Errorf("Expected capacity %d, got %d", bucketCapacity, a.Capacity())
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getBucket("10.0.0.1")
	now = now.Add(4 * time.Minute)
	rl.getBucket("10.0.0.2")
	now = now.Add(2 * time.Minute)

	if evicted := rl.evictIdle(); evicted != 1 {
		t.Errorf("Expected 1 evicted client, got %d", evicted)
	}
	if _, ok := rl.clients["10.0.0.1"]; ok {
		t.Error("Idle client should be evicted")
	}
	if _, ok := rl.clients["10.0.0.2"]; !ok {
		t.Error("Recent client should be kept")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/report", nil)
	req.RemoteAddr = "192.168.1.20:1234"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("First request should pass, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("Expected X-RateLimit-Limit 1000, got %q", rr.Header().Get("X-RateLimit-Limit"))
	}
	if rr.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("Expected X-RateLimit-Remaining header")
	}

	limited := false
	for i := 0; i < 100; i++ {
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("Expected the client to be rate limited")
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}

	// Another client is unaffected
	other := httptest.NewRequest("GET", "/report", nil)
	other.RemoteAddr = "192.168.1.21:1234"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Errorf("Other client should pass, got %d", rr.Code)
	}
}

func TestRateLimiter_MetricsAreFree(t *testing.T) {
	rl := NewRateLimiter()
	bucket := rl.getBucket("192.168.1.30")
	bucket.TakeAvailable(bucketCapacity)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", "/metrics", nil)
	req.RemoteAddr = "192.168.1.30:9999"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Scrapes should not consume tokens, got %d", rr.Code)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter()
	rl.StartCleanup(time.Millisecond)
	rl.Stop()
	rl.Stop()
}
