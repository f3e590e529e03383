// Package lock provides cross-process mutual exclusion for seat
// mutations.  Every code path that writes a seat's status must hold
// that seat's lock.  Locks carry a lease: a holder that crashes or
// stalls loses the lock automatically once the lease expires, so a
// wedged process can never keep a seat unsellable forever.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned by Acquire when the lock could not be
// obtained within the wait timeout.  Callers should treat this as a
// transient "busy" condition and let the client retry.
var ErrNotAcquired = errors.New("lock: not acquired within wait timeout")

// ErrNotHeld is returned by Release when the caller does not hold
// the lock, either because it was never acquired or because the
// lease expired and another holder took it over.
var ErrNotHeld = errors.New("lock: not held by caller")

// Provider hands out distributed locks keyed by an arbitrary string.
// Acquire blocks up to wait for the lock and, on success, returns a
// Handle whose lease expires after lease.  Implementations must
// guarantee that Release only frees the lock if the caller still
// holds it.
type Provider interface {
	// Acquire obtains the lock named key, waiting at most wait.  The
	// returned handle must be released by the caller; the lease bounds
	// how long the lock survives if the caller never does.
	Acquire(ctx context.Context, key string, wait, lease time.Duration) (Handle, error)
}

// Handle represents one successful acquisition.  Release is safe to
// call from a defer regardless of what happened in between.
type Handle interface {
	// Release frees the lock if the caller still holds it.  Returns
	// ErrNotHeld when the lease already expired and the lock moved on.
	Release(ctx context.Context) error
}
