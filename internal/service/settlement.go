package service

import (
	"context"
	"fmt"
	"log"

	"github.com/Parknogyung/ticket-reservation/internal/config"
	"github.com/Parknogyung/ticket-reservation/internal/lock"
	"github.com/Parknogyung/ticket-reservation/internal/model"
	"github.com/Parknogyung/ticket-reservation/internal/store"
)

// SettlementCoordinator finalizes or reverses reservations once the
// external payment outcome arrives.  Both operations are idempotent
// per reservation and all-or-nothing per batch, matching the
// multi-seat checkout they settle.
//
// Confirm relies on PENDING as a logical single-writer gate and
// takes no seat locks: only the reservation coordinator creates
// PENDING rows and only confirm/refund move them out of PENDING.
// Refund flips seats back to AVAILABLE, which races with concurrent
// reservation attempts on the just-freed seat, so it reacquires
// the per-seat locks first.
type SettlementCoordinator struct {
	store store.Store
	locks lock.Provider
	cfg   config.LockConfig
}

// NewSettlementCoordinator wires the coordinator to its store and
// lock provider.
func NewSettlementCoordinator(st store.Store, locks lock.Provider, cfg config.LockConfig) *SettlementCoordinator {
	return &SettlementCoordinator{store: st, locks: locks, cfg: cfg}
}

// Confirm marks the reservations SUCCESS with the payment reference
// and their seats SOLD.  A reservation already SUCCESS under the
// same reference is skipped; any other unexpected state aborts the
// whole batch.  Returns the reservations that actually changed.
func (c *SettlementCoordinator) Confirm(ctx context.Context, reservationIDs []uint64, paymentRef string, userID uint64) ([]model.Reservation, error) {
	if len(reservationIDs) == 0 {
		return nil, nil
	}
	ids := dedupeSorted(reservationIDs)

	var settled []model.Reservation
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		settled = settled[:0]
		reservations, err := tx.ReservationsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, r := range reservations {
			if r.UserID != userID {
				return fmt.Errorf("%w: reservation %d", ErrNotOwner, r.ID)
			}
			if r.Status == model.ReservationSuccess && r.PaymentRef != nil && *r.PaymentRef == paymentRef {
				// Duplicate callback for an already settled payment.
				continue
			}
			if r.Status != model.ReservationPending {
				return &SettlementConflictError{ReservationID: r.ID, Status: r.Status}
			}
			ref := paymentRef
			if err := tx.UpdateReservationStatus(ctx, r.ID, model.ReservationPending, model.ReservationSuccess, &ref); err != nil {
				return err
			}
			seats, err := tx.SeatsByIDs(ctx, []uint64{r.SeatID})
			if err != nil {
				return err
			}
			seat := seats[0]
			if seat.Status != model.SeatReserved {
				return &SeatStateError{SeatID: seat.ID, Status: seat.Status}
			}
			if err := tx.UpdateSeatStatus(ctx, seat.ID, seat.Version, model.SeatSold); err != nil {
				return err
			}
			r.Status = model.ReservationSuccess
			r.PaymentRef = &ref
			settled = append(settled, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// Refund cancels the reservations and returns their seats to
// AVAILABLE.  Already-CANCELLED reservations are skipped.  PENDING
// rows come from an abandoned checkout (seat RESERVED), SUCCESS
// rows from a paid refund (seat SOLD); both end CANCELLED with the
// seat freed.  Returns the reservations that actually changed.
func (c *SettlementCoordinator) Refund(ctx context.Context, reservationIDs []uint64, reason string) ([]model.Reservation, error) {
	if len(reservationIDs) == 0 {
		return nil, nil
	}
	ids := dedupeSorted(reservationIDs)

	// First pass: find which seats the batch touches, so their locks
	// can be taken before any status flips.
	var seatIDs []uint64
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		reservations, err := tx.ReservationsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, r := range reservations {
			if r.Status != model.ReservationCancelled {
				seatIDs = append(seatIDs, r.SeatID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(seatIDs) == 0 {
		return nil, nil
	}
	seatIDs = dedupeSorted(seatIDs)

	held := make([]lock.Handle, 0, len(seatIDs))
	defer func() {
		for _, h := range held {
			if err := h.Release(context.WithoutCancel(ctx)); err != nil {
				log.Printf("settlement: releasing seat lock: %v", err)
			}
		}
	}()
	for _, id := range seatIDs {
		h, err := c.locks.Acquire(ctx, seatLockKey(id), c.cfg.WaitTimeout, c.cfg.Lease)
		if err != nil {
			if err == lock.ErrNotAcquired {
				return nil, fmt.Errorf("%w: seat %d", ErrLockTimeout, id)
			}
			return nil, fmt.Errorf("acquiring lock for seat %d: %w", id, err)
		}
		held = append(held, h)
	}

	var cancelled []model.Reservation
	err = c.store.WithinTx(ctx, func(tx store.Tx) error {
		cancelled = cancelled[:0]
		reservations, err := tx.ReservationsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, r := range reservations {
			if r.Status == model.ReservationCancelled {
				// Duplicate refund callback.
				continue
			}
			var wantSeat string
			switch r.Status {
			case model.ReservationPending:
				wantSeat = model.SeatReserved
			case model.ReservationSuccess:
				wantSeat = model.SeatSold
			default:
				return &SettlementConflictError{ReservationID: r.ID, Status: r.Status}
			}
			if err := tx.UpdateReservationStatus(ctx, r.ID, r.Status, model.ReservationCancelled, nil); err != nil {
				return err
			}
			seats, err := tx.SeatsByIDs(ctx, []uint64{r.SeatID})
			if err != nil {
				return err
			}
			seat := seats[0]
			if seat.Status != wantSeat {
				return &SeatStateError{SeatID: seat.ID, Status: seat.Status}
			}
			if err := tx.UpdateSeatStatus(ctx, seat.ID, seat.Version, model.SeatAvailable); err != nil {
				return err
			}
			r.Status = model.ReservationCancelled
			cancelled = append(cancelled, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(cancelled) > 0 {
		log.Printf("settlement: refunded %d reservation(s), reason=%q", len(cancelled), reason)
	}
	return cancelled, nil
}
