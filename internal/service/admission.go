package service

import (
	"context"
	"time"

	"github.com/Parknogyung/ticket-reservation/internal/config"
	"github.com/Parknogyung/ticket-reservation/internal/waitingroom"
)

// AdmissionGate decides, per concert, who may pass the waiting room
// into the purchase funnel.  A user's waiting rank is fixed at first
// arrival; capacity is the configured limit minus the users active
// inside the funnel within the inactivity window.
//
// The gate tolerates races on its sets: two users admitted for the
// last free slot at the same instant is a momentary over-admission,
// not a correctness problem, because seats themselves are protected
// further down by locks and transactions.
type AdmissionGate struct {
	waiting waitingroom.RankedSet
	active  waitingroom.RankedSet
	cfg     config.AdmissionConfig
	now     func() time.Time
}

// NewAdmissionGate builds a gate over the given waiting and active
// sets.
func NewAdmissionGate(waiting, active waitingroom.RankedSet, cfg config.AdmissionConfig) *AdmissionGate {
	return &AdmissionGate{waiting: waiting, active: active, cfg: cfg, now: time.Now}
}

// EntryDecision is the result of one admission poll.
type EntryDecision struct {
	Rank                 int64 // zero-based waiting position, -1 when unknown
	CanEnter             bool  // true when the user may proceed
	EstimatedWaitSeconds int64 // heuristic, rank * per-user service time
}

// RequestEntry registers the user in the concert's waiting room (if
// not already there) and reports whether they fit into the currently
// free capacity.  Polling repeatedly neither improves nor worsens
// the position.
func (g *AdmissionGate) RequestEntry(ctx context.Context, concertID, userID uint64) (*EntryDecision, error) {
	now := g.now()
	if _, err := g.active.EvictOlderThan(ctx, concertID, now.Add(-g.cfg.ActiveTTL)); err != nil {
		return nil, err
	}
	if _, err := g.waiting.EvictOlderThan(ctx, concertID, now.Add(-g.cfg.WaitingTTL)); err != nil {
		return nil, err
	}
	if err := g.waiting.Add(ctx, concertID, userID, now); err != nil {
		return nil, err
	}
	rank, err := g.waiting.Rank(ctx, concertID, userID)
	if err != nil {
		return nil, err
	}
	if rank == waitingroom.RankNotFound {
		return &EntryDecision{Rank: -1, CanEnter: false}, nil
	}
	activeCount, err := g.active.Cardinality(ctx, concertID)
	if err != nil {
		return nil, err
	}
	available := g.cfg.Capacity - activeCount
	if available < 0 {
		available = 0
	}
	return &EntryDecision{
		Rank:                 rank,
		CanEnter:             rank < available,
		EstimatedWaitSeconds: rank * g.cfg.PerUserServiceSeconds,
	}, nil
}

// RegisterActive moves an admitted user out of the waiting room and
// into the active set, refreshing their last-seen time.  Called on
// every admitted read so idle sessions age out of capacity.
func (g *AdmissionGate) RegisterActive(ctx context.Context, concertID, userID uint64) error {
	if err := g.active.Touch(ctx, concertID, userID, g.now()); err != nil {
		return err
	}
	return g.waiting.Remove(ctx, concertID, userID)
}

// QueueActive reports whether the read path should show the waiting
// room instead of seat data.  It trips when the active set exceeds
// capacity times the overbook factor, independent of the write-path
// waiting mechanism.
func (g *AdmissionGate) QueueActive(ctx context.Context, concertID uint64) (bool, error) {
	now := g.now()
	if _, err := g.active.EvictOlderThan(ctx, concertID, now.Add(-g.cfg.ActiveTTL)); err != nil {
		return false, err
	}
	activeCount, err := g.active.Cardinality(ctx, concertID)
	if err != nil {
		return false, err
	}
	return activeCount > g.cfg.Capacity*g.cfg.OverbookFactor, nil
}
