package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// rateLimiter is a fixed-window per-IP request counter. Windows are one
// minute wide; buckets older than the previous window are pruned on every
// call, so memory stays proportional to the set of recently active IPs.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]int
}

type bucketKey struct {
	ip     string
	window int64
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{buckets: make(map[bucketKey]int)}
}

// allow records one request from ip at the given time and reports whether it
// fits within perMinute for the current window.
func (l *rateLimiter) allow(ip string, now time.Time, perMinute int) bool {
	window := now.Unix() / 60
	key := bucketKey{ip: ip, window: window}

	l.mu.Lock()
	defer l.mu.Unlock()

	for k := range l.buckets {
		if k.window < window-1 {
			delete(l.buckets, k)
		}
	}

	l.buckets[key]++
	return l.buckets[key] <= perMinute
}

// clientIP extracts the originating client address, preferring proxy-set
// headers (Cloudflare, then generic reverse proxies) over the socket address.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
