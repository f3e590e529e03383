package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Parknogyung/ticket-reservation/internal/model"
)

// MemoryStore implements Store on process-local maps.  One mutex
// serializes whole transactions, and each transaction mutates
// copies of the maps that are swapped in on commit, so a failed
// callback leaves no trace.  It backs the deterministic concurrency
// tests and single-node development runs.
type MemoryStore struct {
	mu sync.Mutex

	concerts     map[uint64]model.Concert
	seats        map[uint64]model.Seat
	reservations map[uint64]model.Reservation

	nextConcertID     uint64
	nextSeatID        uint64
	nextReservationID uint64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		concerts:     make(map[uint64]model.Concert),
		seats:        make(map[uint64]model.Seat),
		reservations: make(map[uint64]model.Reservation),
	}
}

// WithinTx runs fn against copies of the store's maps and commits by
// swapping them in.  Serializing transactions under one mutex is a
// coarser isolation level than MySQL provides, never a weaker one.
func (s *MemoryStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memoryTx{
		concerts:          cloneMap(s.concerts),
		seats:             cloneMap(s.seats),
		reservations:      cloneMap(s.reservations),
		nextConcertID:     s.nextConcertID,
		nextSeatID:        s.nextSeatID,
		nextReservationID: s.nextReservationID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.concerts = tx.concerts
	s.seats = tx.seats
	s.reservations = tx.reservations
	s.nextConcertID = tx.nextConcertID
	s.nextSeatID = tx.nextSeatID
	s.nextReservationID = tx.nextReservationID
	return nil
}

func cloneMap[V any](m map[uint64]V) map[uint64]V {
	out := make(map[uint64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memoryTx struct {
	concerts     map[uint64]model.Concert
	seats        map[uint64]model.Seat
	reservations map[uint64]model.Reservation

	nextConcertID     uint64
	nextSeatID        uint64
	nextReservationID uint64
}

func (t *memoryTx) CreateConcert(_ context.Context, c *model.Concert) error {
	t.nextConcertID++
	c.ID = t.nextConcertID
	c.CreatedAt = time.Now().UTC()
	t.concerts[c.ID] = *c
	return nil
}

func (t *memoryTx) ConcertByID(_ context.Context, id uint64) (*model.Concert, error) {
	c, ok := t.concerts[id]
	if !ok {
		return nil, ErrConcertNotFound
	}
	return &c, nil
}

func (t *memoryTx) ListConcerts(_ context.Context) ([]ConcertAvailability, error) {
	out := make([]ConcertAvailability, 0, len(t.concerts))
	for _, c := range t.concerts {
		ca := ConcertAvailability{Concert: c}
		for _, s := range t.seats {
			if s.ConcertID == c.ID && s.Status == model.SeatAvailable {
				ca.AvailableSeats++
			}
		}
		out = append(out, ca)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Concert.StartsAt.Before(out[j].Concert.StartsAt)
	})
	return out, nil
}

func (t *memoryTx) CreateSeats(_ context.Context, seats []model.Seat) error {
	now := time.Now().UTC()
	for _, s := range seats {
		t.nextSeatID++
		s.ID = t.nextSeatID
		s.CreatedAt = now
		s.UpdatedAt = now
		t.seats[s.ID] = s
	}
	return nil
}

func (t *memoryTx) AvailableSeats(_ context.Context, concertID uint64) ([]model.Seat, error) {
	var out []model.Seat
	for _, s := range t.seats {
		if s.ConcertID == concertID && s.Status == model.SeatAvailable {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

func (t *memoryTx) SeatsByIDs(_ context.Context, ids []uint64) ([]model.Seat, error) {
	out := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		s, ok := t.seats[id]
		if !ok {
			return nil, ErrSeatNotFound
		}
		out = append(out, s)
	}
	return out, nil
}

func (t *memoryTx) UpdateSeatStatus(_ context.Context, seatID, version uint64, status string) error {
	s, ok := t.seats[seatID]
	if !ok || s.Version != version {
		return ErrVersionConflict
	}
	s.Status = status
	s.Version++
	s.UpdatedAt = time.Now().UTC()
	t.seats[seatID] = s
	return nil
}

func (t *memoryTx) CreateReservation(_ context.Context, r *model.Reservation) error {
	t.nextReservationID++
	r.ID = t.nextReservationID
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	t.reservations[r.ID] = *r
	return nil
}

func (t *memoryTx) ReservationsByIDs(_ context.Context, ids []uint64) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0, len(ids))
	for _, id := range ids {
		r, ok := t.reservations[id]
		if !ok {
			return nil, ErrReservationNotFound
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *memoryTx) UpdateReservationStatus(_ context.Context, id uint64, from, to string, paymentRef *string) error {
	r, ok := t.reservations[id]
	if !ok {
		return ErrReservationNotFound
	}
	if r.Status != from {
		return ErrStateConflict
	}
	r.Status = to
	if paymentRef != nil {
		r.PaymentRef = paymentRef
	}
	r.UpdatedAt = time.Now().UTC()
	t.reservations[id] = r
	return nil
}
