// Package records implements create/read/update/delete semantics for
// keyed measurements on top of an append-only time-series store.
//
// The store has no uniqueness constraint, no update-in-place, and no
// read-after-write guarantee. This package builds a best-effort CRUD
// illusion on top of it:
//
//   - Create is gated by a bounded-lookback existence probe. Two
//     concurrent creates for the same key can both pass the probe and
//     both append; the store offers no conditional write, so the gate
//     does not close that race.
//   - Update appends unconditionally. An update for a key that was
//     never created silently creates it (PUT-as-upsert).
//   - Delete is gated by the same bounded probe, then removes every
//     historical point under the key.
//   - Read returns every raw point in a trailing window, including
//     repeated points for the same key. No deduplication.
package records

import (
	"context"
	"time"
)

// Record is one logical entry managed by the API.
type Record struct {
	Key        string
	Value      float64
	ObservedAt time.Time
}

// Point is one raw timestamped write as the backing store reports it.
type Point struct {
	Time  time.Time
	Key   string
	Value float64
}

// Store is the contract the record service needs from the backing
// time-series store. Implementations translate these calls into the
// store's native write/query/delete operations and own no business
// rules.
type Store interface {
	// Append writes one point under key and returns the time the write
	// was issued. It never checks for prior existence.
	Append(ctx context.Context, key string, value float64) (time.Time, error)

	// FindByKey reports whether any point tagged with key exists within
	// the trailing window. A very recent write may not be visible yet;
	// absence is not proof of absence.
	FindByKey(ctx context.Context, key string, window time.Duration) (bool, error)

	// ListWindow returns every point in the trailing window, verbatim.
	ListWindow(ctx context.Context, window time.Duration) ([]Point, error)

	// Purge deletes all points tagged with key from the store's epoch
	// up to now. Deletion is applied eventually; completion is not
	// verified.
	Purge(ctx context.Context, key string) error
}
