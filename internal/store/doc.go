// Package store persists text entries in an embedded SQLite database.
//
// One table holds everything: texts(id, content, created_at, last_accessed,
// ip_address, retrieval_count), keyed by the 4-character id. Schema changes
// are applied at open time via embedded goose migrations.
//
// Every read query carries the expiration predicate, so a stale entry is
// never returned even before the next sweep; SweepExpired removes dead rows
// for real. The id primary key makes insert-time uniqueness atomic — a lost
// race between two saves surfaces as ErrDuplicateID, never as an overwrite.
package store
