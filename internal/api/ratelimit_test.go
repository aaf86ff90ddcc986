package api

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_WindowRollsOver(t *testing.T) {
	rl := newRateLimiter()
	base := time.Date(2026, 8, 30, 12, 0, 30, 0, time.UTC)

	if !rl.allow("ip", base, 1) {
		t.Fatal("first request: want allowed")
	}
	if rl.allow("ip", base.Add(10*time.Second), 1) {
		t.Fatal("second request in same window: want denied")
	}
	// Next minute — fresh budget.
	if !rl.allow("ip", base.Add(time.Minute), 1) {
		t.Fatal("request in next window: want allowed")
	}
}

func TestRateLimiter_PrunesOldBuckets(t *testing.T) {
	rl := newRateLimiter()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	rl.allow("a", base, 10)
	rl.allow("b", base, 10)
	rl.allow("a", base.Add(5*time.Minute), 10)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.buckets) != 1 {
		t.Errorf("buckets: got %d, want 1 (old windows pruned)", len(rl.buckets))
	}
}

func TestClientIP_HeaderPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "cloudflare wins",
			headers: map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"},
			want:    "1.1.1.1",
		},
		{
			name:    "first forwarded hop",
			headers: map[string]string{"X-Forwarded-For": " 2.2.2.2 , 10.0.0.1"},
			want:    "2.2.2.2",
		},
		{
			name:    "real ip",
			headers: map[string]string{"X-Real-IP": "3.3.3.3"},
			want:    "3.3.3.3",
		},
		{
			name:   "remote addr fallback",
			remote: "4.4.4.4:5678",
			want:   "4.4.4.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.remote != "" {
				req.RemoteAddr = tt.remote
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP: got %q, want %q", got, tt.want)
			}
		})
	}
}
