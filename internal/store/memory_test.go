package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Parknogyung/ticket-reservation/internal/model"
)

func seedStore(t *testing.T) (*MemoryStore, model.Concert, []model.Seat) {
	t.Helper()
	st := NewMemoryStore()
	concert := model.Concert{Title: "Launch Night", StartsAt: time.Now().Add(24 * time.Hour)}
	err := st.WithinTx(context.Background(), func(tx Tx) error {
		if err := tx.CreateConcert(context.Background(), &concert); err != nil {
			return err
		}
		seats := make([]model.Seat, 0, 3)
		for i := 1; i <= 3; i++ {
			seats = append(seats, model.Seat{
				ConcertID:  concert.ID,
				SeatNumber: uint32(i),
				Status:     model.SeatAvailable,
			})
		}
		return tx.CreateSeats(context.Background(), seats)
	})
	require.NoError(t, err)

	var seats []model.Seat
	err = st.WithinTx(context.Background(), func(tx Tx) error {
		var err error
		seats, err = tx.AvailableSeats(context.Background(), concert.ID)
		return err
	})
	require.NoError(t, err)
	require.Len(t, seats, 3)
	return st, concert, seats
}

func TestUpdateSeatStatusVersionConflict(t *testing.T) {
	st, _, seats := seedStore(t)
	ctx := context.Background()
	seat := seats[0]

	err := st.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateSeatStatus(ctx, seat.ID, seat.Version, model.SeatReserved)
	})
	require.NoError(t, err)

	// A writer holding the old version loses.
	err = st.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateSeatStatus(ctx, seat.ID, seat.Version, model.SeatReserved)
	})
	require.ErrorIs(t, err, ErrVersionConflict)

	// The current version wins and bumps again.
	err = st.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateSeatStatus(ctx, seat.ID, seat.Version+1, model.SeatSold)
	})
	require.NoError(t, err)

	err = st.WithinTx(ctx, func(tx Tx) error {
		got, err := tx.SeatsByIDs(ctx, []uint64{seat.ID})
		if err != nil {
			return err
		}
		require.Equal(t, model.SeatSold, got[0].Status)
		require.Equal(t, seat.Version+2, got[0].Version)
		return nil
	})
	require.NoError(t, err)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	st, _, seats := seedStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.WithinTx(ctx, func(tx Tx) error {
		if err := tx.UpdateSeatStatus(ctx, seats[0].ID, seats[0].Version, model.SeatReserved); err != nil {
			return err
		}
		r := &model.Reservation{UserID: 42, SeatID: seats[0].ID, Status: model.ReservationPending}
		if err := tx.CreateReservation(ctx, r); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither the seat flip nor the reservation survived.
	err = st.WithinTx(ctx, func(tx Tx) error {
		got, err := tx.SeatsByIDs(ctx, []uint64{seats[0].ID})
		if err != nil {
			return err
		}
		require.Equal(t, model.SeatAvailable, got[0].Status)
		_, err = tx.ReservationsByIDs(ctx, []uint64{1})
		require.ErrorIs(t, err, ErrReservationNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateReservationStatusGuardsTransitions(t *testing.T) {
	st, _, seats := seedStore(t)
	ctx := context.Background()

	r := &model.Reservation{UserID: 42, SeatID: seats[0].ID, Status: model.ReservationPending}
	err := st.WithinTx(ctx, func(tx Tx) error {
		return tx.CreateReservation(ctx, r)
	})
	require.NoError(t, err)

	ref := "pay-001"
	err = st.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateReservationStatus(ctx, r.ID, model.ReservationPending, model.ReservationSuccess, &ref)
	})
	require.NoError(t, err)

	// The PENDING guard no longer matches.
	err = st.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateReservationStatus(ctx, r.ID, model.ReservationPending, model.ReservationCancelled, nil)
	})
	require.ErrorIs(t, err, ErrStateConflict)

	err = st.WithinTx(ctx, func(tx Tx) error {
		got, err := tx.ReservationsByIDs(ctx, []uint64{r.ID})
		if err != nil {
			return err
		}
		require.Equal(t, model.ReservationSuccess, got[0].Status)
		require.NotNil(t, got[0].PaymentRef)
		require.Equal(t, "pay-001", *got[0].PaymentRef)
		return nil
	})
	require.NoError(t, err)

	err = st.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateReservationStatus(ctx, 999, model.ReservationPending, model.ReservationCancelled, nil)
	})
	require.ErrorIs(t, err, ErrReservationNotFound)
}

func TestSeatsByIDsMissingSeat(t *testing.T) {
	st, _, seats := seedStore(t)
	ctx := context.Background()

	err := st.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.SeatsByIDs(ctx, []uint64{seats[0].ID, 999})
		return err
	})
	require.ErrorIs(t, err, ErrSeatNotFound)
}

func TestListConcertsSortedByStart(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	late := model.Concert{Title: "Late Show", StartsAt: time.Now().Add(72 * time.Hour)}
	early := model.Concert{Title: "Early Show", StartsAt: time.Now().Add(24 * time.Hour)}
	err := st.WithinTx(ctx, func(tx Tx) error {
		if err := tx.CreateConcert(ctx, &late); err != nil {
			return err
		}
		return tx.CreateConcert(ctx, &early)
	})
	require.NoError(t, err)

	err = st.WithinTx(ctx, func(tx Tx) error {
		rows, err := tx.ListConcerts(ctx)
		if err != nil {
			return err
		}
		require.Len(t, rows, 2)
		require.Equal(t, "Early Show", rows[0].Concert.Title)
		require.Equal(t, "Late Show", rows[1].Concert.Title)
		return nil
	})
	require.NoError(t, err)
}
