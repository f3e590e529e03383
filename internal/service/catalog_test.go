package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Parknogyung/ticket-reservation/internal/model"
	"github.com/Parknogyung/ticket-reservation/internal/store"
)

func TestRegisterConcertCreatesNumberedSeats(t *testing.T) {
	st := store.NewMemoryStore()
	catalog := NewCatalog(st)

	concert, err := catalog.RegisterConcert(context.Background(), "Launch Night", time.Now().Add(48*time.Hour), 5)
	require.NoError(t, err)
	require.NotZero(t, concert.ID)

	seats, err := catalog.AvailableSeats(context.Background(), concert.ID)
	require.NoError(t, err)
	require.Len(t, seats, 5)
	for i, s := range seats {
		require.Equal(t, uint32(i+1), s.SeatNumber)
		require.Equal(t, model.SeatAvailable, s.Status)
		require.Equal(t, concert.ID, s.ConcertID)
	}
}

func TestRegisterConcertRejectsNonPositiveSeatCount(t *testing.T) {
	catalog := NewCatalog(store.NewMemoryStore())

	_, err := catalog.RegisterConcert(context.Background(), "Empty Hall", time.Now(), 0)
	require.ErrorIs(t, err, ErrInvalidSeatCount)
	_, err = catalog.RegisterConcert(context.Background(), "Empty Hall", time.Now(), -3)
	require.ErrorIs(t, err, ErrInvalidSeatCount)
}

func TestListConcertsReportsAvailability(t *testing.T) {
	st := store.NewMemoryStore()
	catalog := NewCatalog(st)

	early, err := catalog.RegisterConcert(context.Background(), "Early Show", time.Now().Add(24*time.Hour), 2)
	require.NoError(t, err)
	late, err := catalog.RegisterConcert(context.Background(), "Late Show", time.Now().Add(72*time.Hour), 4)
	require.NoError(t, err)

	rows, err := catalog.ListConcerts(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, early.ID, rows[0].Concert.ID)
	require.Equal(t, int64(2), rows[0].AvailableSeats)
	require.Equal(t, late.ID, rows[1].Concert.ID)
	require.Equal(t, int64(4), rows[1].AvailableSeats)
}

func TestAvailableSeatsUnknownConcert(t *testing.T) {
	catalog := NewCatalog(store.NewMemoryStore())

	_, err := catalog.AvailableSeats(context.Background(), 999)
	require.ErrorIs(t, err, store.ErrConcertNotFound)
}

func TestAvailableSeatsShrinksAsSeatsAreTaken(t *testing.T) {
	st := store.NewMemoryStore()
	catalog := NewCatalog(st)

	concert, err := catalog.RegisterConcert(context.Background(), "Launch Night", time.Now().Add(24*time.Hour), 3)
	require.NoError(t, err)
	seats, err := catalog.AvailableSeats(context.Background(), concert.ID)
	require.NoError(t, err)

	err = st.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.UpdateSeatStatus(context.Background(), seats[0].ID, seats[0].Version, model.SeatReserved)
	})
	require.NoError(t, err)

	remaining, err := catalog.AvailableSeats(context.Background(), concert.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
}
