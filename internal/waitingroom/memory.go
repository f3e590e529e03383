package waitingroom

import (
	"context"
	"sync"
	"time"
)

// MemorySet is an in-process RankedSet used by tests and by
// single-node deployments running without Redis.  Ordering is by
// (score, insertion sequence), giving the same strict first-seen
// order as the Redis sorted set.
type MemorySet struct {
	mu     sync.Mutex
	groups map[uint64]map[uint64]memoryScore
	seq    uint64
}

type memoryScore struct {
	at  int64 // unix milliseconds
	seq uint64
}

// NewMemorySet returns an empty MemorySet.
func NewMemorySet() *MemorySet {
	return &MemorySet{groups: make(map[uint64]map[uint64]memoryScore)}
}

func (s *MemorySet) group(concertID uint64) map[uint64]memoryScore {
	g, ok := s.groups[concertID]
	if !ok {
		g = make(map[uint64]memoryScore)
		s.groups[concertID] = g
	}
	return g
}

// Add inserts the user only if absent.
func (s *MemorySet) Add(_ context.Context, concertID, userID uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.group(concertID)
	if _, ok := g[userID]; ok {
		return nil
	}
	s.seq++
	g[userID] = memoryScore{at: at.UnixMilli(), seq: s.seq}
	return nil
}

// Touch upserts the user, refreshing the score.
func (s *MemorySet) Touch(_ context.Context, concertID, userID uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.group(concertID)
	e, ok := g[userID]
	if !ok {
		s.seq++
		e = memoryScore{seq: s.seq}
	}
	e.at = at.UnixMilli()
	g[userID] = e
	return nil
}

// Rank counts members strictly ahead of the user in (score, seq) order.
func (s *MemorySet) Rank(_ context.Context, concertID, userID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.groups[concertID]
	me, ok := g[userID]
	if !ok {
		return RankNotFound, nil
	}
	var rank int64
	for id, e := range g {
		if id == userID {
			continue
		}
		if e.at < me.at || (e.at == me.at && e.seq < me.seq) {
			rank++
		}
	}
	return rank, nil
}

// Remove deletes the user from the set.
func (s *MemorySet) Remove(_ context.Context, concertID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[concertID]; ok {
		delete(g, userID)
	}
	return nil
}

// EvictOlderThan removes entries scored strictly before cutoff.
func (s *MemorySet) EvictOlderThan(_ context.Context, concertID uint64, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.groups[concertID]
	limit := cutoff.UnixMilli()
	var removed int64
	for id, e := range g {
		if e.at < limit {
			delete(g, id)
			removed++
		}
	}
	return removed, nil
}

// Cardinality returns the size of the set.
func (s *MemorySet) Cardinality(_ context.Context, concertID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.groups[concertID])), nil
}
