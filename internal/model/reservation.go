package model

import "time"

// Reservation status values.  A reservation is created PENDING and
// transitions exactly once to SUCCESS or CANCELLED; the only edge
// permitted after SUCCESS is CANCELLED via a refund.
const (
	ReservationPending   = "PENDING"
	ReservationSuccess   = "SUCCESS"
	ReservationCancelled = "CANCELLED"
)

// Reservation records a user's claim on a single seat.  It is
// created PENDING by the reservation coordinator while the seat is
// RESERVED, and finalized by the settlement coordinator when the
// external payment outcome arrives: confirm sets SUCCESS and the
// payment reference, refund sets CANCELLED and frees the seat.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – user who made the reservation.
//  SeatID     – seat being reserved.
//  Status     – state of the reservation (PENDING, SUCCESS, CANCELLED).
//  PaymentRef – external payment reference, set on confirmation.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Reservation struct {
	ID         uint64    // reservations.id
	UserID     uint64    // reservations.user_id
	SeatID     uint64    // reservations.seat_id
	Status     string    // reservations.status
	PaymentRef *string   // reservations.payment_ref (nullable)
	CreatedAt  time.Time // reservations.created_at
	UpdatedAt  time.Time // reservations.updated_at
}
