// Package waitingroom provides the ordered per-concert user sets
// behind the admission gate: the waiting set, whose rank decides who
// may enter the purchase funnel, and the active set, which counts
// users currently inside it.  Both are scored by timestamp and
// support range eviction of stale entries.
//
// These sets are deliberately not guarded by any cross-process lock.
// A momentarily stale rank or count only over- or under-admits by a
// few users, which is a UX concern; seat assignment, which must
// never be fuzzy, goes through the lock and store layers instead.
package waitingroom

import (
	"context"
	"time"
)

// RankNotFound is returned by Rank for members not in the set.
const RankNotFound int64 = -1

// RankedSet is an ordered collection of users per concert, scored
// by a timestamp.  Rank 0 is the oldest entry.  Ties at the same
// millisecond are broken by a stable secondary order (insertion
// sequence in memory, member id on Redis); either way the order is
// strict and fixed.
type RankedSet interface {
	// Add inserts the user with the given score only if absent, so a
	// user polling repeatedly keeps the position of their first call.
	Add(ctx context.Context, concertID, userID uint64, at time.Time) error
	// Touch upserts the user, refreshing the score if already present.
	// Used for the active set, where the score is a last-seen time.
	Touch(ctx context.Context, concertID, userID uint64, at time.Time) error
	// Rank returns the user's zero-based position, or RankNotFound.
	Rank(ctx context.Context, concertID, userID uint64) (int64, error)
	// Remove deletes the user from the set if present.
	Remove(ctx context.Context, concertID, userID uint64) error
	// EvictOlderThan removes every entry scored strictly before cutoff
	// and returns how many were removed.
	EvictOlderThan(ctx context.Context, concertID uint64, cutoff time.Time) (int64, error)
	// Cardinality returns the number of entries in the set.
	Cardinality(ctx context.Context, concertID uint64) (int64, error)
}
