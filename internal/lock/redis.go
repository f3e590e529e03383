package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when its value still
// matches the owner token.  Without the compare, a holder whose
// lease expired could delete a lock that has since been granted to
// someone else, silently breaking mutual exclusion.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisProvider implements Provider on top of a single Redis
// instance using SET NX PX with a per-acquisition owner token.
// Acquisition polls at a fixed interval until the wait timeout; the
// lease maps to the key's PX expiry so Redis enforces it even if
// this process dies.
type RedisProvider struct {
	rdb    *redis.Client
	retry  time.Duration
	prefix string
}

// NewRedisProvider returns a provider bound to the given client.
// Keys are namespaced under "seat_lock:".
func NewRedisProvider(rdb *redis.Client) *RedisProvider {
	return &RedisProvider{rdb: rdb, retry: 50 * time.Millisecond, prefix: "seat_lock:"}
}

// Acquire implements Provider.  It attempts SET NX immediately and
// then at the retry interval until wait elapses or ctx is done.
func (p *RedisProvider) Acquire(ctx context.Context, key string, wait, lease time.Duration) (Handle, error) {
	token := uuid.NewString()
	full := p.prefix + key
	deadline := time.Now().Add(wait)

	for {
		ok, err := p.rdb.SetNX(ctx, full, token, lease).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &redisHandle{rdb: p.rdb, key: full, token: token}, nil
		}
		if time.Now().Add(p.retry).After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.retry):
		}
	}
}

type redisHandle struct {
	rdb   *redis.Client
	key   string
	token string
}

// Release frees the lock via the compare-and-delete script.
func (h *redisHandle) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, h.rdb, []string{h.key}, h.token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}
