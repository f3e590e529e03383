package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Parknogyung/ticket-reservation/internal/config"
	"github.com/Parknogyung/ticket-reservation/internal/lock"
	"github.com/Parknogyung/ticket-reservation/internal/model"
	"github.com/Parknogyung/ticket-reservation/internal/store"
)

// settlementEnv is a full reserve-then-settle fixture: one concert,
// one buyer holding PENDING reservations on the first two seats.
type settlementEnv struct {
	store       *store.MemoryStore
	locks       lock.Provider
	reserve     *ReservationCoordinator
	settle      *SettlementCoordinator
	concertID   uint64
	seatIDs     []uint64
	reservedIDs []uint64
}

const buyerID = uint64(42)

func newSettlementEnv(t *testing.T) *settlementEnv {
	t.Helper()
	st, seatIDs, concertID := seedConcert(t, 3)
	locks := lock.NewMemoryProvider()
	cfg := testLockConfig()
	env := &settlementEnv{
		store:     st,
		locks:     locks,
		reserve:   NewReservationCoordinator(locks, st, cfg),
		settle:    NewSettlementCoordinator(st, locks, cfg),
		concertID: concertID,
		seatIDs:   seatIDs,
	}
	ids, err := env.reserve.ReserveSeats(context.Background(), buyerID, concertID, seatIDs[:2])
	require.NoError(t, err)
	env.reservedIDs = ids
	return env
}

func TestConfirmSettlesPendingBatch(t *testing.T) {
	env := newSettlementEnv(t)

	settled, err := env.settle.Confirm(context.Background(), env.reservedIDs, "pay-001", buyerID)
	require.NoError(t, err)
	require.Len(t, settled, 2)

	for i, rid := range env.reservedIDs {
		r := reservationByID(t, env.store, rid)
		require.Equal(t, model.ReservationSuccess, r.Status)
		require.NotNil(t, r.PaymentRef)
		require.Equal(t, "pay-001", *r.PaymentRef)
		require.Equal(t, model.SeatSold, seatByID(t, env.store, env.seatIDs[i]).Status)
	}
}

func TestConfirmIdempotentPerPaymentRef(t *testing.T) {
	env := newSettlementEnv(t)

	_, err := env.settle.Confirm(context.Background(), env.reservedIDs, "pay-001", buyerID)
	require.NoError(t, err)

	// The duplicate callback changes nothing and reports nothing changed.
	settled, err := env.settle.Confirm(context.Background(), env.reservedIDs, "pay-001", buyerID)
	require.NoError(t, err)
	require.Empty(t, settled)

	// A different reference against the same reservations is a conflict.
	_, err = env.settle.Confirm(context.Background(), env.reservedIDs, "pay-002", buyerID)
	var conflict *SettlementConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestConfirmRejectsForeignReservation(t *testing.T) {
	env := newSettlementEnv(t)

	_, err := env.settle.Confirm(context.Background(), env.reservedIDs, "pay-001", buyerID+1)
	require.ErrorIs(t, err, ErrNotOwner)

	// The batch aborted, nothing settled.
	for _, rid := range env.reservedIDs {
		require.Equal(t, model.ReservationPending, reservationByID(t, env.store, rid).Status)
	}
}

func TestConfirmUnknownReservation(t *testing.T) {
	env := newSettlementEnv(t)

	_, err := env.settle.Confirm(context.Background(), []uint64{9999}, "pay-001", buyerID)
	require.ErrorIs(t, err, store.ErrReservationNotFound)
}

func TestConfirmAbortsOnCancelledReservation(t *testing.T) {
	env := newSettlementEnv(t)

	// Refund only the first reservation, then try to confirm both.
	_, err := env.settle.Refund(context.Background(), env.reservedIDs[:1], "changed mind")
	require.NoError(t, err)

	_, err = env.settle.Confirm(context.Background(), env.reservedIDs, "pay-001", buyerID)
	var conflict *SettlementConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, env.reservedIDs[0], conflict.ReservationID)

	// The second reservation must remain PENDING: all or nothing.
	require.Equal(t, model.ReservationPending, reservationByID(t, env.store, env.reservedIDs[1]).Status)
}

func TestRefundAbandonedCheckout(t *testing.T) {
	env := newSettlementEnv(t)

	cancelled, err := env.settle.Refund(context.Background(), env.reservedIDs, "payment window expired")
	require.NoError(t, err)
	require.Len(t, cancelled, 2)

	for i, rid := range env.reservedIDs {
		require.Equal(t, model.ReservationCancelled, reservationByID(t, env.store, rid).Status)
		require.Equal(t, model.SeatAvailable, seatByID(t, env.store, env.seatIDs[i]).Status)
	}
}

func TestRefundPaidReservation(t *testing.T) {
	env := newSettlementEnv(t)

	_, err := env.settle.Confirm(context.Background(), env.reservedIDs, "pay-001", buyerID)
	require.NoError(t, err)

	cancelled, err := env.settle.Refund(context.Background(), env.reservedIDs, "event postponed")
	require.NoError(t, err)
	require.Len(t, cancelled, 2)

	for i, rid := range env.reservedIDs {
		require.Equal(t, model.ReservationCancelled, reservationByID(t, env.store, rid).Status)
		require.Equal(t, model.SeatAvailable, seatByID(t, env.store, env.seatIDs[i]).Status)
	}
}

func TestRefundIdempotent(t *testing.T) {
	env := newSettlementEnv(t)

	_, err := env.settle.Refund(context.Background(), env.reservedIDs, "changed mind")
	require.NoError(t, err)

	cancelled, err := env.settle.Refund(context.Background(), env.reservedIDs, "changed mind")
	require.NoError(t, err)
	require.Empty(t, cancelled)
}

func TestRefundedSeatCanBeResold(t *testing.T) {
	env := newSettlementEnv(t)

	_, err := env.settle.Refund(context.Background(), env.reservedIDs, "changed mind")
	require.NoError(t, err)

	// Another buyer can immediately take the freed seats.
	ids, err := env.reserve.ReserveSeats(context.Background(), buyerID+1, env.concertID, env.seatIDs[:2])
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestSettlementReportsSeatStateMismatch(t *testing.T) {
	env := newSettlementEnv(t)

	// Force the seat out from under its PENDING reservation, the state
	// only a lock bug or manual intervention could produce.
	seat := seatByID(t, env.store, env.seatIDs[0])
	err := env.store.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.UpdateSeatStatus(context.Background(), seat.ID, seat.Version, model.SeatAvailable)
	})
	require.NoError(t, err)

	var seatState *SeatStateError
	_, err = env.settle.Confirm(context.Background(), env.reservedIDs, "pay-001", buyerID)
	require.ErrorAs(t, err, &seatState)
	require.Equal(t, seat.ID, seatState.SeatID)
	require.Equal(t, model.SeatAvailable, seatState.Status)

	_, err = env.settle.Refund(context.Background(), env.reservedIDs, "cleanup")
	seatState = nil
	require.ErrorAs(t, err, &seatState)
	require.Equal(t, seat.ID, seatState.SeatID)

	// The aborted batches left the healthy reservation untouched.
	require.Equal(t, model.ReservationPending, reservationByID(t, env.store, env.reservedIDs[1]).Status)
}

func TestRefundWaitsForSeatLock(t *testing.T) {
	env := newSettlementEnv(t)

	cfg := config.LockConfig{WaitTimeout: 30 * time.Millisecond, Lease: time.Minute}
	settle := NewSettlementCoordinator(env.store, env.locks, cfg)

	// A reservation attempt mid-flight holds the seat lock.
	h, err := env.locks.Acquire(context.Background(), seatLockKey(env.seatIDs[0]), cfg.WaitTimeout, cfg.Lease)
	require.NoError(t, err)
	defer h.Release(context.Background())

	_, err = settle.Refund(context.Background(), env.reservedIDs, "changed mind")
	require.ErrorIs(t, err, ErrLockTimeout)

	// Nothing flipped while the lock was contended.
	for _, rid := range env.reservedIDs {
		require.Equal(t, model.ReservationPending, reservationByID(t, env.store, rid).Status)
	}
}
