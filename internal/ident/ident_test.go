package ident

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeChecker reports the ids in taken as existing and records every id it
// was asked about.
type fakeChecker struct {
	taken map[string]bool
	seen  []string
	err   error
}

func (f *fakeChecker) Exists(_ context.Context, id string) (bool, error) {
	f.seen = append(f.seen, id)
	if f.err != nil {
		return false, f.err
	}
	return f.taken[id], nil
}

// fixedIndex returns a randIndex func that always picks i.
func fixedIndex(i int) func(int) int { return func(int) int { return i } }

func TestAllocate_LengthAndAlphabet(t *testing.T) {
	a := New(&fakeChecker{})
	id, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(id) != Length {
		t.Errorf("id length: got %d, want %d", len(id), Length)
	}
	for _, r := range id {
		if !strings.ContainsRune(upperAlphabet, r) {
			t.Errorf("id %q contains %q, not in uppercase alphabet", id, r)
		}
	}
}

func TestAllocate_RetriesOnCollision(t *testing.T) {
	// First candidate is taken; the allocator must draw again.
	c := &fakeChecker{taken: map[string]bool{}}
	a := New(c)

	calls := 0
	a.randIndex = func(n int) int {
		calls++
		if calls <= Length {
			return 0 // first draw: "AAAA"
		}
		return 1 % n // subsequent draws: "BBBB"
	}
	c.taken["AAAA"] = true

	id, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if id != "BBBB" {
		t.Errorf("id: got %q, want BBBB", id)
	}
	if len(c.seen) != 2 {
		t.Errorf("existence checks: got %d, want 2", len(c.seen))
	}
}

func TestAllocate_WidensAlphabetUnderPressure(t *testing.T) {
	// Every candidate is reported taken; index 30 is only valid in the wide
	// alphabet, so the first half of the budget draws "EEEE" (30 mod 26) and
	// the second half draws "4444" (digit at index 30).
	c := &fakeChecker{taken: map[string]bool{"EEEE": true, "4444": true}}
	a := New(c)
	a.randIndex = func(n int) int { return 30 % n }

	_, err := a.Allocate(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Allocate: got %v, want ErrExhausted", err)
	}

	if len(c.seen) != maxAttempts {
		t.Fatalf("attempts: got %d, want %d", len(c.seen), maxAttempts)
	}
	if c.seen[0] != "EEEE" {
		t.Errorf("first half candidate: got %q, want EEEE", c.seen[0])
	}
	if c.seen[maxAttempts-1] != "4444" {
		t.Errorf("second half candidate: got %q, want 4444", c.seen[maxAttempts-1])
	}
}

func TestAllocate_Exhausted(t *testing.T) {
	// Index 0 draws "AAAA" in both alphabets, and it is taken.
	c := &fakeChecker{taken: map[string]bool{"AAAA": true}}
	a := New(c)
	a.randIndex = fixedIndex(0)

	_, err := a.Allocate(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Allocate: got %v, want ErrExhausted", err)
	}
}

func TestAllocate_CheckerErrorPropagates(t *testing.T) {
	boom := errors.New("db gone")
	a := New(&fakeChecker{err: boom})
	_, err := a.Allocate(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Allocate: got %v, want wrapped checker error", err)
	}
}
