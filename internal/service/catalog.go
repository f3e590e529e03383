package service

import (
	"context"
	"errors"
	"time"

	"github.com/Parknogyung/ticket-reservation/internal/model"
	"github.com/Parknogyung/ticket-reservation/internal/store"
)

// ErrInvalidSeatCount is returned when a concert is registered with
// no seats.
var ErrInvalidSeatCount = errors.New("seat count must be positive")

// Catalog creates concerts with their seat inventory and serves the
// read side of the funnel: concert listings with remaining capacity
// and per-concert available seats.
type Catalog struct {
	store store.Store
}

// NewCatalog returns a catalog over the given store.
func NewCatalog(st store.Store) *Catalog {
	return &Catalog{store: st}
}

// RegisterConcert creates a concert and its numbered seats in one
// transaction, so a half-created inventory can never be observed.
func (c *Catalog) RegisterConcert(ctx context.Context, title string, startsAt time.Time, seatCount int) (*model.Concert, error) {
	if seatCount <= 0 {
		return nil, ErrInvalidSeatCount
	}
	concert := &model.Concert{Title: title, StartsAt: startsAt}
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateConcert(ctx, concert); err != nil {
			return err
		}
		seats := make([]model.Seat, 0, seatCount)
		for i := 1; i <= seatCount; i++ {
			seats = append(seats, model.Seat{
				ConcertID:  concert.ID,
				SeatNumber: uint32(i),
				Status:     model.SeatAvailable,
			})
		}
		return tx.CreateSeats(ctx, seats)
	})
	if err != nil {
		return nil, err
	}
	return concert, nil
}

// ListConcerts returns all concerts with their remaining seat counts.
func (c *Catalog) ListConcerts(ctx context.Context) ([]store.ConcertAvailability, error) {
	var out []store.ConcertAvailability
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListConcerts(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConcertByID loads one concert, or store.ErrConcertNotFound.
func (c *Catalog) ConcertByID(ctx context.Context, id uint64) (*model.Concert, error) {
	var concert *model.Concert
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		concert, err = tx.ConcertByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return concert, nil
}

// AvailableSeats returns a concert's AVAILABLE seats.  The concert
// must exist; unknown ids yield store.ErrConcertNotFound.
func (c *Catalog) AvailableSeats(ctx context.Context, concertID uint64) ([]model.Seat, error) {
	var seats []model.Seat
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.ConcertByID(ctx, concertID); err != nil {
			return err
		}
		var err error
		seats, err = tx.AvailableSeats(ctx, concertID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return seats, nil
}
