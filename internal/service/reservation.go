package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/Parknogyung/ticket-reservation/internal/config"
	"github.com/Parknogyung/ticket-reservation/internal/lock"
	"github.com/Parknogyung/ticket-reservation/internal/model"
	"github.com/Parknogyung/ticket-reservation/internal/store"
)

// ReservationCoordinator turns a set of AVAILABLE seats into
// RESERVED seats with PENDING reservations, atomically.  Per-seat
// distributed locks serialize concurrent attempts on the same seat;
// the storage transaction guarantees all-or-nothing across the
// requested set.
type ReservationCoordinator struct {
	locks lock.Provider
	store store.Store
	cfg   config.LockConfig
}

// NewReservationCoordinator wires the coordinator to its lock
// provider and store.
func NewReservationCoordinator(locks lock.Provider, st store.Store, cfg config.LockConfig) *ReservationCoordinator {
	return &ReservationCoordinator{locks: locks, store: st, cfg: cfg}
}

// seatLockKey names the distributed lock for one seat.
func seatLockKey(seatID uint64) string {
	return strconv.FormatUint(seatID, 10)
}

// ReserveSeats reserves every requested seat for the user or none
// of them.  Seat ids are deduplicated and locked in ascending
// order; every concurrent caller locking in the same order is what
// rules out deadlock between overlapping multi-seat requests.
//
// Error kinds: ErrLockTimeout (transient, retry), ErrNoSeats,
// store.ErrSeatNotFound, *SeatUnavailableError (definitive).  Locks
// are released on every path.
func (c *ReservationCoordinator) ReserveSeats(ctx context.Context, userID, concertID uint64, seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, ErrNoSeats
	}
	ids := dedupeSorted(seatIDs)

	held := make([]lock.Handle, 0, len(ids))
	defer func() {
		for _, h := range held {
			if err := h.Release(context.WithoutCancel(ctx)); err != nil {
				log.Printf("reservation: releasing seat lock: %v", err)
			}
		}
	}()

	for _, id := range ids {
		h, err := c.locks.Acquire(ctx, seatLockKey(id), c.cfg.WaitTimeout, c.cfg.Lease)
		if err != nil {
			if err == lock.ErrNotAcquired {
				return nil, fmt.Errorf("%w: seat %d", ErrLockTimeout, id)
			}
			return nil, fmt.Errorf("acquiring lock for seat %d: %w", id, err)
		}
		held = append(held, h)
	}

	reservationIDs := make([]uint64, 0, len(ids))
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		seats, err := tx.SeatsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, seat := range seats {
			if seat.ConcertID != concertID {
				return store.ErrSeatNotFound
			}
			if seat.Status != model.SeatAvailable {
				return &SeatUnavailableError{SeatID: seat.ID}
			}
		}
		for _, seat := range seats {
			if err := tx.UpdateSeatStatus(ctx, seat.ID, seat.Version, model.SeatReserved); err != nil {
				// The version moved despite the lock. The optimistic
				// check is the backstop; surface it as a seat conflict.
				if err == store.ErrVersionConflict {
					return &SeatUnavailableError{SeatID: seat.ID}
				}
				return err
			}
			r := &model.Reservation{
				UserID: userID,
				SeatID: seat.ID,
				Status: model.ReservationPending,
			}
			if err := tx.CreateReservation(ctx, r); err != nil {
				return err
			}
			reservationIDs = append(reservationIDs, r.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservationIDs, nil
}

// dedupeSorted returns the unique ids in ascending order.
func dedupeSorted(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
