package waitingroom

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSet implements RankedSet on a Redis sorted set per concert.
// The member is the decimal user id and the score the unix
// millisecond timestamp, the same layout the concert queue used in
// production.  ZADD NX gives the insert-if-absent semantics that
// pin a waiting user's rank to their first poll.  Users who arrive
// within the same millisecond share a score and are ordered lexically
// by member string, which differs from the in-memory set's arrival
// sequence; both are stable strict orders, so ranks never shuffle
// between polls.
type RedisSet struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisSet returns a RedisSet whose keys are namespaced by
// prefix, e.g. "queue:waiting" or "queue:active".
func NewRedisSet(rdb *redis.Client, prefix string) *RedisSet {
	return &RedisSet{rdb: rdb, prefix: prefix}
}

func (s *RedisSet) key(concertID uint64) string {
	return fmt.Sprintf("%s:%d", s.prefix, concertID)
}

func member(userID uint64) string { return strconv.FormatUint(userID, 10) }

// Add inserts the user only if absent (ZADD NX).
func (s *RedisSet) Add(ctx context.Context, concertID, userID uint64, at time.Time) error {
	return s.rdb.ZAddNX(ctx, s.key(concertID), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: member(userID),
	}).Err()
}

// Touch upserts the user, refreshing the score.
func (s *RedisSet) Touch(ctx context.Context, concertID, userID uint64, at time.Time) error {
	return s.rdb.ZAdd(ctx, s.key(concertID), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: member(userID),
	}).Err()
}

// Rank returns the zero-based position or RankNotFound.
func (s *RedisSet) Rank(ctx context.Context, concertID, userID uint64) (int64, error) {
	rank, err := s.rdb.ZRank(ctx, s.key(concertID), member(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return RankNotFound, nil
		}
		return RankNotFound, err
	}
	return rank, nil
}

// Remove deletes the user from the set.
func (s *RedisSet) Remove(ctx context.Context, concertID, userID uint64) error {
	return s.rdb.ZRem(ctx, s.key(concertID), member(userID)).Err()
}

// EvictOlderThan removes entries scored strictly before cutoff.
func (s *RedisSet) EvictOlderThan(ctx context.Context, concertID uint64, cutoff time.Time) (int64, error) {
	max := fmt.Sprintf("(%d", cutoff.UnixMilli())
	return s.rdb.ZRemRangeByScore(ctx, s.key(concertID), "-inf", max).Result()
}

// Cardinality returns the size of the set.
func (s *RedisSet) Cardinality(ctx context.Context, concertID uint64) (int64, error) {
	return s.rdb.ZCard(ctx, s.key(concertID)).Result()
}
