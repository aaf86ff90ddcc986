package ident

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Length is the fixed identifier length.
const Length = 4

const (
	upperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	wideAlphabet  = upperAlphabet + "0123456789"

	// maxAttempts caps the total number of random draws per Allocate call.
	// The first half uses the uppercase alphabet; the second half widens to
	// letters+digits to relieve namespace pressure before giving up.
	maxAttempts = 64
)

// ErrExhausted is returned when Allocate cannot find a free identifier within
// its attempt budget. Callers may retry the whole operation.
var ErrExhausted = errors.New("identifier namespace exhausted")

// Checker reports whether an identifier is already taken by a live entry.
// The text store is the single source of truth — no separate allocation
// ledger is kept.
type Checker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Allocator produces short random identifiers that are free at the time of
// the check. Uniqueness under concurrent saves is ultimately enforced by the
// store's primary key constraint; the allocator only keeps the collision
// probability negligible.
type Allocator struct {
	exists Checker

	randIndex func(n int) int // injectable for deterministic tests
}

// New creates an Allocator backed by the given existence checker.
func New(c Checker) *Allocator {
	return &Allocator{
		exists:    c,
		randIndex: rand.IntN,
	}
}

// Allocate returns an identifier of Length characters that no live entry
// currently uses. It draws uniformly random candidates and re-checks on
// collision, widening the alphabet halfway through its attempt budget. When
// the budget runs out it fails with ErrExhausted rather than spinning.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		alphabet := upperAlphabet
		if attempt >= maxAttempts/2 {
			alphabet = wideAlphabet
		}

		id := a.draw(alphabet)
		taken, err := a.exists.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("ident: existence check: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrExhausted
}

// draw builds one random candidate over the given alphabet.
func (a *Allocator) draw(alphabet string) string {
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		b.WriteByte(alphabet[a.randIndex(len(alphabet))])
	}
	return b.String()
}
