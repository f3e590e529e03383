// Package store is the transactional persistence layer for the
// ticket domain: concerts, seats and reservations.  All mutations go
// through WithinTx, which either commits every row touched by the
// callback or none of them.  Seat status writes are guarded by an
// optimistic version column as a second line of defence behind the
// distributed seat locks.
package store

import (
	"context"

	"github.com/Parknogyung/ticket-reservation/internal/model"
)

// ConcertAvailability pairs a concert with its remaining
// AVAILABLE seat count, for the public concert listing.
type ConcertAvailability struct {
	Concert        model.Concert
	AvailableSeats int64
}

// Store opens atomic transactions over the ticket tables.
type Store interface {
	// WithinTx runs fn inside one transaction.  If fn returns an
	// error the transaction is rolled back and that error returned;
	// otherwise the transaction commits.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of row operations available inside a transaction.
// Reads reflect the transaction's own uncommitted writes.
type Tx interface {
	// CreateConcert inserts a concert and populates its ID.
	CreateConcert(ctx context.Context, c *model.Concert) error
	// ConcertByID returns a concert or ErrConcertNotFound.
	ConcertByID(ctx context.Context, id uint64) (*model.Concert, error)
	// ListConcerts returns all concerts with their remaining
	// AVAILABLE seat counts, ordered by start time.
	ListConcerts(ctx context.Context) ([]ConcertAvailability, error)

	// CreateSeats bulk-inserts seats for a concert.
	CreateSeats(ctx context.Context, seats []model.Seat) error
	// AvailableSeats returns a concert's AVAILABLE seats ordered by
	// seat number.
	AvailableSeats(ctx context.Context, concertID uint64) ([]model.Seat, error)
	// SeatsByIDs returns the seats for the given ids.  Every id must
	// exist; a missing id yields ErrSeatNotFound.
	SeatsByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error)
	// UpdateSeatStatus sets a seat's status, conditioned on the
	// version observed by the caller.  A concurrent write that bumped
	// the version first yields ErrVersionConflict.
	UpdateSeatStatus(ctx context.Context, seatID, version uint64, status string) error

	// CreateReservation inserts a reservation and populates its ID
	// and CreatedAt.
	CreateReservation(ctx context.Context, r *model.Reservation) error
	// ReservationsByIDs returns reservations for the given ids,
	// locked for the duration of the transaction where the backend
	// supports it.  A missing id yields ErrReservationNotFound.
	ReservationsByIDs(ctx context.Context, ids []uint64) ([]model.Reservation, error)
	// UpdateReservationStatus moves a reservation from one status to
	// another, optionally recording a payment reference.  When the
	// row is no longer in the from status, ErrStateConflict is
	// returned and nothing is written.
	UpdateReservationStatus(ctx context.Context, id uint64, from, to string, paymentRef *string) error
}
