package model

import "time"

// Seat status values.  A seat only ever moves along
// AVAILABLE -> RESERVED -> SOLD, with RESERVED and SOLD able to
// return to AVAILABLE through an explicit cancel/refund.
const (
	SeatAvailable = "AVAILABLE"
	SeatReserved  = "RESERVED"
	SeatSold      = "SOLD"
)

// Seat is one sellable seat of a concert.  Rows are created once
// during concert registration and never deleted; only the status
// and version columns are mutated afterwards, and only by the
// reservation and settlement coordinators.
//
// Fields:
//  ID         – primary key identifier.
//  ConcertID  – the concert to which this seat belongs.
//  SeatNumber – position of the seat within the concert, starting at 1.
//  Status     – availability status (AVAILABLE, RESERVED, SOLD).
//  Version    – optimistic locking field; bumped on every status write
//               so that a stale writer updates zero rows.
//  CreatedAt  – timestamp when the record was created.
//  UpdatedAt  – timestamp when the record was last updated.
type Seat struct {
	ID         uint64    // seats.id
	ConcertID  uint64    // seats.concert_id
	SeatNumber uint32    // seats.seat_number
	Status     string    // seats.status
	Version    uint64    // seats.version
	CreatedAt  time.Time // seats.created_at
	UpdatedAt  time.Time // seats.updated_at
}
