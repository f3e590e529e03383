package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Parknogyung/ticket-reservation/internal/config"
	"github.com/Parknogyung/ticket-reservation/internal/lock"
	"github.com/Parknogyung/ticket-reservation/internal/model"
	"github.com/Parknogyung/ticket-reservation/internal/store"
)

func testLockConfig() config.LockConfig {
	return config.LockConfig{WaitTimeout: 500 * time.Millisecond, Lease: 5 * time.Second}
}

// seedConcert creates a concert with seatCount available seats and
// returns the store, the seat ids in ascending order and the concert id.
func seedConcert(t *testing.T, seatCount int) (*store.MemoryStore, []uint64, uint64) {
	t.Helper()
	st := store.NewMemoryStore()
	catalog := NewCatalog(st)
	concert, err := catalog.RegisterConcert(context.Background(), "Launch Night", time.Now().Add(24*time.Hour), seatCount)
	require.NoError(t, err)

	seats, err := catalog.AvailableSeats(context.Background(), concert.ID)
	require.NoError(t, err)
	require.Len(t, seats, seatCount)
	ids := make([]uint64, 0, len(seats))
	for _, s := range seats {
		ids = append(ids, s.ID)
	}
	return st, ids, concert.ID
}

func seatByID(t *testing.T, st *store.MemoryStore, id uint64) model.Seat {
	t.Helper()
	var seat model.Seat
	err := st.WithinTx(context.Background(), func(tx store.Tx) error {
		seats, err := tx.SeatsByIDs(context.Background(), []uint64{id})
		if err != nil {
			return err
		}
		seat = seats[0]
		return nil
	})
	require.NoError(t, err)
	return seat
}

func reservationByID(t *testing.T, st *store.MemoryStore, id uint64) model.Reservation {
	t.Helper()
	var r model.Reservation
	err := st.WithinTx(context.Background(), func(tx store.Tx) error {
		rs, err := tx.ReservationsByIDs(context.Background(), []uint64{id})
		if err != nil {
			return err
		}
		r = rs[0]
		return nil
	})
	require.NoError(t, err)
	return r
}

func TestReserveSeats(t *testing.T) {
	st, seatIDs, concertID := seedConcert(t, 3)
	coord := NewReservationCoordinator(lock.NewMemoryProvider(), st, testLockConfig())

	ids, err := coord.ReserveSeats(context.Background(), 42, concertID, seatIDs[:2])
	require.NoError(t, err)
	require.Len(t, ids, 2)

	for i, rid := range ids {
		r := reservationByID(t, st, rid)
		require.Equal(t, model.ReservationPending, r.Status)
		require.Equal(t, uint64(42), r.UserID)

		seat := seatByID(t, st, seatIDs[i])
		require.Equal(t, model.SeatReserved, seat.Status)
		require.Equal(t, uint64(1), seat.Version)
	}
	// The third seat is untouched.
	require.Equal(t, model.SeatAvailable, seatByID(t, st, seatIDs[2]).Status)
}

func TestReserveSeatsDeduplicatesIDs(t *testing.T) {
	st, seatIDs, concertID := seedConcert(t, 2)
	coord := NewReservationCoordinator(lock.NewMemoryProvider(), st, testLockConfig())

	ids, err := coord.ReserveSeats(context.Background(), 42, concertID, []uint64{seatIDs[0], seatIDs[0], seatIDs[0]})
	require.NoError(t, err)
	require.Len(t, ids, 1)
}

func TestReserveSeatsRejectsEmptyRequest(t *testing.T) {
	st, _, concertID := seedConcert(t, 1)
	coord := NewReservationCoordinator(lock.NewMemoryProvider(), st, testLockConfig())

	_, err := coord.ReserveSeats(context.Background(), 42, concertID, nil)
	require.ErrorIs(t, err, ErrNoSeats)
}

func TestReserveSeatsUnknownSeat(t *testing.T) {
	st, seatIDs, concertID := seedConcert(t, 1)
	coord := NewReservationCoordinator(lock.NewMemoryProvider(), st, testLockConfig())

	_, err := coord.ReserveSeats(context.Background(), 42, concertID, []uint64{seatIDs[0] + 1000})
	require.ErrorIs(t, err, store.ErrSeatNotFound)
}

func TestReserveSeatsWrongConcert(t *testing.T) {
	st, seatIDs, concertID := seedConcert(t, 1)
	coord := NewReservationCoordinator(lock.NewMemoryProvider(), st, testLockConfig())

	_, err := coord.ReserveSeats(context.Background(), 42, concertID+1, seatIDs)
	require.ErrorIs(t, err, store.ErrSeatNotFound)

	// The mismatch must not leak a partial hold.
	require.Equal(t, model.SeatAvailable, seatByID(t, st, seatIDs[0]).Status)
}

func TestReserveSeatsAllOrNothing(t *testing.T) {
	st, seatIDs, concertID := seedConcert(t, 3)
	locks := lock.NewMemoryProvider()
	coord := NewReservationCoordinator(locks, st, testLockConfig())

	// Another buyer already holds the middle seat.
	_, err := coord.ReserveSeats(context.Background(), 7, concertID, []uint64{seatIDs[1]})
	require.NoError(t, err)

	_, err = coord.ReserveSeats(context.Background(), 42, concertID, seatIDs)
	var unavailable *SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, seatIDs[1], unavailable.SeatID)

	// Seats 0 and 2 must still be free for the next attempt.
	require.Equal(t, model.SeatAvailable, seatByID(t, st, seatIDs[0]).Status)
	require.Equal(t, model.SeatAvailable, seatByID(t, st, seatIDs[2]).Status)

	ids, err := coord.ReserveSeats(context.Background(), 42, concertID, []uint64{seatIDs[0], seatIDs[2]})
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestReserveSeatsNoOversell(t *testing.T) {
	st, seatIDs, concertID := seedConcert(t, 1)
	coord := NewReservationCoordinator(lock.NewMemoryProvider(), st, testLockConfig())
	target := seatIDs[0]

	const buyers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, err := coord.ReserveSeats(context.Background(), userID, concertID, []uint64{target})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else {
				errs = append(errs, err)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Len(t, errs, buyers-1)
	for _, err := range errs {
		var unavailable *SeatUnavailableError
		require.True(t, errors.As(err, &unavailable) || errors.Is(err, ErrLockTimeout), "unexpected error: %v", err)
	}
	require.Equal(t, model.SeatReserved, seatByID(t, st, target).Status)
}

func TestReserveSeatsLockTimeout(t *testing.T) {
	st, seatIDs, concertID := seedConcert(t, 1)
	locks := lock.NewMemoryProvider()
	cfg := config.LockConfig{WaitTimeout: 30 * time.Millisecond, Lease: time.Minute}
	coord := NewReservationCoordinator(locks, st, cfg)

	// Simulate a holder that never finishes within our wait budget.
	h, err := locks.Acquire(context.Background(), seatLockKey(seatIDs[0]), cfg.WaitTimeout, cfg.Lease)
	require.NoError(t, err)
	defer h.Release(context.Background())

	_, err = coord.ReserveSeats(context.Background(), 42, concertID, seatIDs)
	require.ErrorIs(t, err, ErrLockTimeout)

	// Nothing changed, the buyer can retry once the holder is gone.
	require.Equal(t, model.SeatAvailable, seatByID(t, st, seatIDs[0]).Status)
}
