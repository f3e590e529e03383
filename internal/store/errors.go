// Sentinel errors shared by every Store implementation.  Callers
// use errors.Is to map these onto the service-level taxonomy.
package store

import "errors"

// ErrConcertNotFound is returned when a concert id does not exist.
var ErrConcertNotFound = errors.New("concert not found")

// ErrSeatNotFound is returned when a requested seat id does not exist.
var ErrSeatNotFound = errors.New("seat not found")

// ErrReservationNotFound is returned when a requested reservation id
// does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrVersionConflict is returned by UpdateSeatStatus when another
// transaction bumped the seat's version first.  With the seat locks
// working correctly this should never fire; it is the safety net
// that catches a write race slipping past a lock bug.
var ErrVersionConflict = errors.New("seat version conflict")

// ErrStateConflict is returned by UpdateReservationStatus when the
// reservation is not in the expected source status.
var ErrStateConflict = errors.New("reservation state conflict")
