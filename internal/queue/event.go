// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// SettlementEvent is published after a settlement transaction
// commits, for both outcomes.  It carries enough for downstream
// consumers to log, notify or feed analytics without querying the
// primary database.
type SettlementEvent struct {
	EventID        string   `json:"event_id"`
	Outcome        string   `json:"outcome"` // CONFIRMED or REFUNDED
	ReservationIDs []uint64 `json:"reservation_ids"`
	SeatIDs        []uint64 `json:"seat_ids"`
	UserID         uint64   `json:"user_id,omitempty"`
	PaymentRef     string   `json:"payment_ref,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	SettledAt      string   `json:"settled_at"`
}

// Settlement outcomes.
const (
	OutcomeConfirmed = "CONFIRMED"
	OutcomeRefunded  = "REFUNDED"
)
