package model

import "time"

// Concert represents a single on-sale event round.  It is the
// grouping unit for seats, admission queues and active purchase
// sessions: every seat belongs to exactly one concert and every
// waiting-room entry is scoped to one concert.
//
// Fields:
//  ID        – primary key identifier.
//  Title     – human readable concert title.
//  StartsAt  – when the concert takes place.
//  CreatedAt – timestamp when the record was created.
type Concert struct {
	ID        uint64    // concerts.id
	Title     string    // concerts.title
	StartsAt  time.Time // concerts.starts_at
	CreatedAt time.Time // concerts.created_at
}
