package config

import "sync"

// LiveLimits is a concurrency-safe holder for the current boundary limits.
// The HTTP handler and the WebSocket hub read from it on every request; the
// config watcher replaces the value on reload.
type LiveLimits struct {
	mu sync.RWMutex
	l  Limits
}

// NewLiveLimits creates a holder initialised with l.
func NewLiveLimits(l Limits) *LiveLimits {
	return &LiveLimits{l: l}
}

// Get returns the current limits.
func (b *LiveLimits) Get() Limits {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.l
}

// Set replaces the current limits.
func (b *LiveLimits) Set(l Limits) {
	b.mu.Lock()
	b.l = l
	b.mu.Unlock()
}
