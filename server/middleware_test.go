package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		path         string
		expectedCost int64
	}{
		{"/metrics", 0},
		{"/health", 5},
		{"/api/v1/analyze", 100},
		{"/api/v1/analyze/stream", 100},
		{"/api/v1/translate", 50},
		{"/api/v1/images", 20},
		{"/api/v1/drugs/resolve", 10},
		{"/api/v1/interactions", 10},
		{"/api/v1/analyses", 10},
		{"/unknown", 5},
		{"/", 5},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if cost := getTokenCost(req); cost != tt.expectedCost {
				t.Errorf("Expected cost %d for %s, got %d", tt.expectedCost, tt.path, cost)
			}
		})
	}
}

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{"no proxy headers", nil, "192.0.2.1:1234"},
		{"single forwarded", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "203.0.113.7"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}, "203.0.113.7"},
		{"real ip header", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.2"}, "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest("GET", "/health", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.expected {
				t.Errorf("Expected RemoteAddr %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestBlockDirectAccessMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   int
	}{
		{"loopback ipv4", "127.0.0.1:5555", nil, http.StatusOK},
		{"loopback ipv6", "[::1]:5555", nil, http.StatusOK},
		{"direct public ip", "203.0.113.7:5555", nil, http.StatusForbidden},
		{"unparseable address", "garbage", nil, http.StatusForbidden},
		{"behind proxy forwarded", "10.0.0.5:5555", map[string]string{"X-Forwarded-For": "203.0.113.7"}, http.StatusOK},
		{"behind proxy real ip", "10.0.0.5:5555", map[string]string{"X-Real-IP": "203.0.113.7"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/health", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			BlockDirectAccessMiddleware(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := &config.Config{
		MaxRequestBody: 100,
		MaxHeaderSize:  200,
		MaxUploadSize:  1000,
	}

	tests := []struct {
		name        string
		contentType string
		bodySize    int
		header      string
		expected    int
	}{
		{"small json body", "application/json", 50, "", http.StatusOK},
		{"json body at limit", "application/json", 100, "", http.StatusOK},
		{"json body over limit", "application/json", 101, "", http.StatusRequestEntityTooLarge},
		{"multipart under upload limit", "multipart/form-data; boundary=x", 500, "", http.StatusOK},
		{"multipart over upload limit", "multipart/form-data; boundary=x", 1001, "", http.StatusRequestEntityTooLarge},
		{"headers over limit", "application/json", 10, strings.Repeat("a", 250), http.StatusRequestHeaderFieldsTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(strings.Repeat("x", tt.bodySize)))
			req.Header.Set("Content-Type", tt.contentType)
			if tt.header != "" {
				req.Header.Set("X-Padding", tt.header)
			}
			rr := httptest.NewRecorder()
			RequestSizeMiddleware(cfg)(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestRequestSizeMiddlewareCapsUnknownLength(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 10, MaxHeaderSize: 1000, MaxUploadSize: 10}

	var readErr error
	h := RequestSizeMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))

	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(strings.Repeat("x", 50)))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Errorf("Expected MaxBytesError reading an oversized body, got %v", readErr)
	}
}

func TestRateLimiterHandler(t *testing.T) {
	rl := NewRateLimiter()
	t.Cleanup(rl.Stop)
	h := rl.Handler(okHandler())

	// 1000 tokens cover ten analyses
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/analyze", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "1000" {
			t.Errorf("Expected X-RateLimit-Limit 1000, got %q", rr.Header().Get("X-RateLimit-Limit"))
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/analyze", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 after bucket is drained, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}

	// Free routes still pass
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected /metrics to bypass the limit, got %d", rr.Code)
	}

	// Another client has its own bucket
	req := httptest.NewRequest("POST", "/api/v1/analyze", nil)
	req.RemoteAddr = "198.51.100.9:4000"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected a fresh client to pass, got %d", rr.Code)
	}
}

func TestRateLimiterRejectionKeepsBalance(t *testing.T) {
	rl := NewRateLimiter()
	t.Cleanup(rl.Stop)
	h := rl.Handler(okHandler())

	bucket := rl.getBucket("203.0.113.20")
	bucket.TakeAvailable(bucketCapacity - 60)

	for _i := 0; _i < 3; _i++ {
		req := httptest.NewRequest("POST", "/api/v1/analyze", nil)
		req.RemoteAddr = "203.0.113.20:4000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("Expected 429 below the analyze cost, got %d", rr.Code)
		}
	}
	if got := bucket.Available(); got < 60 {
		t.Errorf("Expected rejected requests to leave the balance intact, got %d tokens", got)
	}

	// The remaining balance still pays for cheaper calls
	req := httptest.NewRequest("GET", "/api/v1/drugs/resolve?text=aspirin", nil)
	req.RemoteAddr = "203.0.113.20:4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected resolve to pass with the kept balance, got %d", rr.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()
	t.Cleanup(rl.Stop)

	rl.getBucket("192.0.2.1")
	drained := rl.getBucket("192.0.2.2")
	drained.TakeAvailable(500)

	rl.cleanup()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if _, ok := rl.clients["192.0.2.1"]; ok {
		t.Error("Expected full bucket to be removed")
	}
	if _, ok := rl.clients["192.0.2.2"]; !ok {
		t.Error("Expected partially used bucket to be kept")
	}
}
