// Package service holds the admission, reservation and settlement
// coordinators.  This file defines the error kinds they return so
// call sites can handle every failure mode explicitly with
// errors.Is / errors.As instead of catching thrown strings.
package service

import (
	"errors"
	"fmt"
)

// ErrLockTimeout means a seat lock could not be acquired within the
// wait bound.  Transient: the caller may simply retry.
var ErrLockTimeout = errors.New("seat lock wait timed out")

// ErrNoSeats is returned when reserveSeats is called with an empty
// seat list.
var ErrNoSeats = errors.New("no seats requested")

// ErrNotOwner is returned when a settlement names a reservation that
// belongs to a different user.
var ErrNotOwner = errors.New("reservation belongs to another user")

// SeatUnavailableError reports the first seat that was not
// AVAILABLE when a reservation transaction re-checked it under
// lock.  Definitive: retrying the same request cannot succeed while
// the seat keeps its current holder.
type SeatUnavailableError struct {
	SeatID uint64
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seat %d is not available", e.SeatID)
}

// SettlementConflictError reports a reservation that was not in the
// state a settlement expected and did not match idempotently.
type SettlementConflictError struct {
	ReservationID uint64
	Status        string
}

func (e *SettlementConflictError) Error() string {
	return fmt.Sprintf("reservation %d is in state %s", e.ReservationID, e.Status)
}

// SeatStateError reports a seat whose status did not match the
// reservation it backs during settlement.  The reservation was in
// the expected state, the seat was not, so the conflict names the
// seat.
type SeatStateError struct {
	SeatID uint64
	Status string
}

func (e *SeatStateError) Error() string {
	return fmt.Sprintf("seat %d is in state %s", e.SeatID, e.Status)
}
