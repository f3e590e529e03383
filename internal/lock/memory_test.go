package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	h, err := p.Acquire(ctx, "seat:1", 100*time.Millisecond, time.Minute)
	require.NoError(t, err)

	// A second caller with no wait budget is rejected immediately.
	_, err = p.Acquire(ctx, "seat:1", 0, time.Minute)
	require.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, h.Release(ctx))

	h2, err := p.Acquire(ctx, "seat:1", 0, time.Minute)
	require.NoError(t, err)
	require.NoError(t, h2.Release(ctx))
}

func TestAcquireWaitsForHolder(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	h, err := p.Acquire(ctx, "seat:1", 0, time.Minute)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		h2, err := p.Acquire(ctx, "seat:1", time.Second, time.Minute)
		if err == nil {
			err = h2.Release(ctx)
		}
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, h.Release(ctx))
	require.NoError(t, <-done)
}

func TestLeaseExpiryFreesLock(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	h, err := p.Acquire(ctx, "seat:1", 0, 30*time.Millisecond)
	require.NoError(t, err)

	// After the lease runs out a new caller takes the lock, and the
	// original handle may no longer release it.
	h2, err := p.Acquire(ctx, "seat:1", time.Second, time.Minute)
	require.NoError(t, err)
	require.ErrorIs(t, h.Release(ctx), ErrNotHeld)
	require.NoError(t, h2.Release(ctx))
}

func TestDoubleReleaseReturnsNotHeld(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	h, err := p.Acquire(ctx, "seat:1", 0, time.Minute)
	require.NoError(t, err)
	require.NoError(t, h.Release(ctx))
	require.ErrorIs(t, h.Release(ctx), ErrNotHeld)
}

func TestAcquireHonoursContextCancel(t *testing.T) {
	p := NewMemoryProvider()

	h, err := p.Acquire(context.Background(), "seat:1", 0, time.Minute)
	require.NoError(t, err)
	defer h.Release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = p.Acquire(ctx, "seat:1", time.Minute, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMutualExclusionUnderContention(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		holders int
		max     int
		mu      sync.Mutex
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := p.Acquire(ctx, "seat:1", 2*time.Second, time.Minute)
			if err != nil {
				return
			}
			mu.Lock()
			holders++
			if holders > max {
				max = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			_ = h.Release(ctx)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, max)
}
