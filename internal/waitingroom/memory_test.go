package waitingroom

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddIsInsertIfAbsent(t *testing.T) {
	s := NewMemorySet()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	require.NoError(t, s.Add(ctx, 1, 100, base))
	require.NoError(t, s.Add(ctx, 1, 101, base.Add(time.Second)))

	// Re-adding later must not move user 100 behind user 101.
	require.NoError(t, s.Add(ctx, 1, 100, base.Add(time.Minute)))

	rank, err := s.Rank(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, int64(0), rank)
	rank, err = s.Rank(ctx, 1, 101)
	require.NoError(t, err)
	require.Equal(t, int64(1), rank)
}

func TestTouchRefreshesScore(t *testing.T) {
	s := NewMemorySet()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	require.NoError(t, s.Touch(ctx, 1, 100, base))
	require.NoError(t, s.Touch(ctx, 1, 101, base.Add(time.Second)))
	require.NoError(t, s.Touch(ctx, 1, 100, base.Add(time.Minute)))

	// Touch is an upsert, so user 100 now sits behind user 101.
	rank, err := s.Rank(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, int64(1), rank)
}

func TestRankUnknownMember(t *testing.T) {
	s := NewMemorySet()
	rank, err := s.Rank(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Equal(t, int64(RankNotFound), rank)
}

func TestSameTimestampOrderedByArrival(t *testing.T) {
	s := NewMemorySet()
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	for userID := uint64(1); userID <= 5; userID++ {
		require.NoError(t, s.Add(ctx, 1, userID, at))
	}
	for userID := uint64(1); userID <= 5; userID++ {
		rank, err := s.Rank(ctx, 1, userID)
		require.NoError(t, err)
		require.Equal(t, int64(userID-1), rank)
	}
}

func TestEvictOlderThan(t *testing.T) {
	s := NewMemorySet()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	require.NoError(t, s.Add(ctx, 1, 100, base))
	require.NoError(t, s.Add(ctx, 1, 101, base.Add(10*time.Minute)))

	removed, err := s.EvictOlderThan(ctx, 1, base.Add(5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	// The survivor moves to the front.
	rank, err := s.Rank(ctx, 1, 101)
	require.NoError(t, err)
	require.Equal(t, int64(0), rank)

	// Entries scored exactly at the cutoff stay.
	removed, err = s.EvictOlderThan(ctx, 1, base.Add(10*time.Minute))
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestRemoveAndCardinality(t *testing.T) {
	s := NewMemorySet()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	require.NoError(t, s.Add(ctx, 1, 100, base))
	require.NoError(t, s.Add(ctx, 1, 101, base))
	require.NoError(t, s.Add(ctx, 2, 100, base))

	n, err := s.Cardinality(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, s.Remove(ctx, 1, 100))
	n, err = s.Cardinality(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// Removing an absent member is a no-op.
	require.NoError(t, s.Remove(ctx, 1, 999))

	n, err = s.Cardinality(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
