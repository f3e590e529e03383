package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryProvider is an in-process Provider.  It mirrors the Redis
// provider's semantics, including lease expiry and owner-checked
// release, so concurrency behaviour can be exercised
// deterministically in tests.  It also serves single-node
// deployments that run without Redis.
type MemoryProvider struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
	retry time.Duration
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// NewMemoryProvider returns an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		locks: make(map[string]memoryEntry),
		retry: 5 * time.Millisecond,
	}
}

// Acquire implements Provider.  Expired leases are reaped lazily on
// the next acquisition attempt for the same key.
func (p *MemoryProvider) Acquire(ctx context.Context, key string, wait, lease time.Duration) (Handle, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		if p.tryAcquire(key, token, lease) {
			return &memoryHandle{p: p, key: key, token: token}, nil
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

func (p *MemoryProvider) tryAcquire(key, token string, lease time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if e, held := p.locks[key]; held && e.expiresAt.After(now) {
		return false
	}
	p.locks[key] = memoryEntry{token: token, expiresAt: now.Add(lease)}
	return true
}

type memoryHandle struct {
	p     *MemoryProvider
	key   string
	token string
}

// Release frees the lock only when this handle's token still owns it.
func (h *memoryHandle) Release(_ context.Context) error {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	e, held := h.p.locks[h.key]
	if !held || e.token != h.token || !e.expiresAt.After(time.Now()) {
		return ErrNotHeld
	}
	delete(h.p.locks, h.key)
	return nil
}
