package pasty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pastyhq/pasty/internal/metrics"
	"github.com/pastyhq/pasty/internal/store"
)

// insertAttempts caps how many times Save re-allocates after losing the
// check-then-insert race to a concurrent save of the same id.
const insertAttempts = 3

// Allocator produces a free short identifier.
type Allocator interface {
	Allocate(ctx context.Context) (string, error)
}

// Service is the core save/retrieve surface the HTTP boundary and the
// WebSocket hub both call into. It owns the orchestration: allocate an id,
// insert, sweep before reads, and notify the hub when the count changes.
type Service struct {
	store   *store.Store
	alloc   Allocator
	metrics *metrics.Metrics

	notify func(count int) // count broadcast hook, set once at startup
}

// New creates a Service. m may be nil when metrics are not collected.
func New(st *store.Store, alloc Allocator, m *metrics.Metrics) *Service {
	return &Service{store: st, alloc: alloc, metrics: m}
}

// SetNotifier installs the hook invoked with the new live count after every
// successful save. Must be called before the service starts handling
// requests; hub failures never propagate back through it.
func (s *Service) SetNotifier(notify func(count int)) {
	s.notify = notify
}

// Window returns the expiration window texts live for.
func (s *Service) Window() time.Duration {
	return s.store.Window()
}

// Save stores content under a freshly allocated identifier and returns it.
// Content length is the boundary's concern — Save persists whatever it is
// given. A duplicate-id collision (two saves racing to the same id) is
// resolved by re-allocating; allocation pressure surfaces as
// ident.ErrExhausted from the allocator.
func (s *Service) Save(ctx context.Context, content, origin string, now time.Time) (string, error) {
	for attempt := 0; attempt < insertAttempts; attempt++ {
		id, err := s.alloc.Allocate(ctx)
		if err != nil {
			return "", fmt.Errorf("save: %w", err)
		}

		e := store.Entry{
			ID:           id,
			Content:      content,
			CreatedAt:    now,
			LastAccessed: now,
			Origin:       origin,
		}
		err = s.store.Insert(ctx, e)
		if errors.Is(err, store.ErrDuplicateID) {
			// Lost the race between the allocator's check and our insert.
			slog.Warn("save: id collided after allocation, retrying", "id", id)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("save: %w", err)
		}

		s.metrics.RecordSave()
		s.broadcastCount(ctx)
		return id, nil
	}
	return "", fmt.Errorf("save: allocation kept colliding: %w", store.ErrDuplicateID)
}

// Retrieve returns the content stored under id, or store.ErrNotFound when the
// id is absent or expired. Expired entries are swept eagerly first; on a hit
// the entry's last-accessed timestamp is updated and its retrieval count was
// already incremented by the lookup itself.
func (s *Service) Retrieve(ctx context.Context, id string, now time.Time) (string, error) {
	if n, err := s.store.SweepExpired(ctx, now); err != nil {
		// Lazy expiry in the lookup below still guarantees correctness.
		slog.Warn("retrieve: sweep failed", "err", err)
	} else {
		s.metrics.RecordSwept(n)
	}

	content, err := s.store.Lookup(ctx, id, now)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.RecordMiss()
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}

	if err := s.store.TouchLastAccessed(ctx, id, now); err != nil {
		slog.Warn("retrieve: touch last_accessed failed", "id", id, "err", err)
	}

	s.metrics.RecordRetrieval()
	return content, nil
}

// CurrentCount returns the number of live texts, for polling-style queries.
func (s *Service) CurrentCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// RunSweeper periodically sweeps expired entries in the background. The lazy
// check on every read already guarantees correctness; this keeps dead rows
// from piling up between retrieves. Blocks until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context) {
	interval := s.store.Window() / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	if interval > time.Hour {
		interval = time.Hour
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.store.SweepExpired(ctx, now)
			if err != nil {
				slog.Error("sweeper: sweep failed", "err", err)
				continue
			}
			s.metrics.RecordSwept(n)
			if n > 0 {
				slog.Info("sweeper: removed expired texts", "count", n)
			}
		}
	}
}

// broadcastCount reads the live count and hands it to the hub. Best effort:
// a count read failure only costs one broadcast, never the save that
// triggered it.
func (s *Service) broadcastCount(ctx context.Context) {
	if s.notify == nil {
		return
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		slog.Warn("broadcast: count read failed", "err", err)
		return
	}
	s.notify(n)
}
