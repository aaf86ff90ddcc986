package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/pastyhq/pasty/internal/store/migrations"
)

// Sentinel errors. Callers match these with errors.Is.
var (
	// ErrNotFound is returned by Lookup and Get when no live entry has the
	// given identifier. Expired-but-not-yet-swept entries count as absent.
	ErrNotFound = errors.New("text not found")

	// ErrDuplicateID is returned by Insert when the identifier is already
	// taken by a live entry. The allocator's pre-check makes this rare, but
	// the primary key constraint is what actually enforces uniqueness.
	ErrDuplicateID = errors.New("duplicate text id")
)

// Entry is one stored text together with its metadata.
type Entry struct {
	ID             string
	Content        string
	CreatedAt      time.Time // immutable after insertion; the sole expiration clock
	LastAccessed   time.Time
	Origin         string // submission channel/address, informational only
	RetrievalCount int64
}

// Store is a durable text store backed by an embedded SQLite database.
// Entries expire a fixed window after creation; expiry is checked lazily in
// every read query and enforced eagerly by SweepExpired.
//
// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	window time.Duration
	now    func() time.Time // injectable for deterministic tests
}

// Open opens (creating if necessary) the SQLite database at path, runs the
// embedded migrations, and returns a Store with the given expiration window.
func Open(ctx context.Context, path string, window time.Duration) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %q: %w", path, err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate %q: %w", path, err)
	}

	return &Store{db: db, window: window, now: time.Now}, nil
}

// migrate runs the embedded goose migrations against db.
func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Window returns the configured expiration window.
func (s *Store) Window() time.Duration {
	return s.window
}

// Insert stores a new entry. The entry is visible to reads as soon as Insert
// returns. Fails with ErrDuplicateID if a row with the same id already exists.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO texts (id, content, created_at, last_accessed, ip_address, retrieval_count)
		VALUES (?, ?, ?, ?, ?, 0)
	`, e.ID, e.Content, e.CreatedAt.UTC(), e.LastAccessed.UTC(), e.Origin)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return ErrDuplicateID
		}
		return fmt.Errorf("store: insert %q: %w", e.ID, err)
	}
	return nil
}

// Lookup returns the content for id if a live entry exists, incrementing its
// retrieval count in the same statement so concurrent lookups never lose an
// increment. Absent or expired entries yield ErrNotFound and change nothing.
func (s *Store) Lookup(ctx context.Context, id string, now time.Time) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `
		UPDATE texts SET retrieval_count = retrieval_count + 1
		WHERE id = ? AND created_at >= ?
		RETURNING content
	`, id, s.cutoff(now)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: lookup %q: %w", id, err)
	}
	return content, nil
}

// Get returns the full entry for id without side effects, or ErrNotFound.
// Expiry is evaluated against the store's own clock.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	var (
		e            Entry
		lastAccessed sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, content, created_at, last_accessed, ip_address, retrieval_count
		FROM texts WHERE id = ? AND created_at >= ?
	`, id, s.cutoff(s.now())).Scan(
		&e.ID, &e.Content, &e.CreatedAt, &lastAccessed, &e.Origin, &e.RetrievalCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %q: %w", id, err)
	}
	if lastAccessed.Valid {
		e.LastAccessed = lastAccessed.Time
	}
	return &e, nil
}

// TouchLastAccessed updates the last-accessed timestamp for id. A missing id
// is a no-op, not an error — callers only touch after a successful lookup, so
// absence means the entry expired in between, which is tolerated.
func (s *Store) TouchLastAccessed(ctx context.Context, id string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE texts SET last_accessed = ? WHERE id = ?`, ts.UTC(), id)
	if err != nil {
		return fmt.Errorf("store: touch %q: %w", id, err)
	}
	return nil
}

// Exists reports whether a live (non-expired) entry with id is present.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM texts WHERE id = ? AND created_at >= ?`,
		id, s.cutoff(s.now())).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: exists %q: %w", id, err)
	}
	return true, nil
}

// Count returns the number of live entries. The value is informational — it
// feeds the hub's count broadcasts — so slight staleness under concurrent
// writes is acceptable.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM texts WHERE created_at >= ?`,
		s.cutoff(s.now())).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// SweepExpired hard-deletes every entry older than the expiration window and
// returns the number of rows removed. Nothing of an expired entry survives.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM texts WHERE created_at < ?`, s.cutoff(now))
	if err != nil {
		return 0, fmt.Errorf("store: sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: sweep rows affected: %w", err)
	}
	if n > 0 {
		slog.Debug("store: swept expired texts", "count", n)
	}
	return n, nil
}

// cutoff converts a point in time to the oldest created_at still considered
// live. An entry is expired strictly after its age exceeds the window.
func (s *Store) cutoff(now time.Time) time.Time {
	return now.UTC().Add(-s.window)
}
