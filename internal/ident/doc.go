// Package ident allocates the short identifiers that key stored texts.
//
// Identifiers are 4 characters drawn from an uppercase alphabet (26^4 ≈ 457k
// combinations), widened to uppercase+digits (36^4 ≈ 1.7M) under collision
// pressure. Allocation is bounded: after a fixed attempt budget Allocate
// fails with ErrExhausted instead of looping forever.
package ident
