package limiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDelay_UnknownHostIsNotDelayed(t *testing.T) {
	r := NewConcurrentRateLimiter()
	r.SetBaseDelay(time.Second)

	assert.Equal(t, time.Duration(0), r.ResolveDelay("example.com"))
}

func TestResolveDelay_UsesLargestDelay(t *testing.T) {
	r := NewConcurrentRateLimiter()
	r.SetBaseDelay(100 * time.Millisecond)
	r.SetCrawlDelay("example.com", 5*time.Second)
	r.MarkLastFetchAsNow("example.com")

	delay := r.ResolveDelay("example.com")
	assert.Greater(t, delay, 4*time.Second)
	assert.LessOrEqual(t, delay, 5*time.Second)
}

func TestBackoff_GrowsAndResets(t *testing.T) {
	r := NewConcurrentRateLimiter()

	r.Backoff("example.com")
	first, ok := r.HostTiming("example.com")
	require.True(t, ok)
	assert.Equal(t, 1, first.BackoffCount())
	assert.Equal(t, time.Second, first.BackOffDelay())

	r.Backoff("example.com")
	second, _ := r.HostTiming("example.com")
	assert.Equal(t, 2*time.Second, second.BackOffDelay())

	r.ResetBackoff("example.com")
	reset, _ := r.HostTiming("example.com")
	assert.Equal(t, 0, reset.BackoffCount())
	assert.Equal(t, time.Duration(0), reset.BackOffDelay())
}

func TestBackoff_Capped(t *testing.T) {
	r := NewConcurrentRateLimiter()
	for i := 0; i < 10; i++ {
		r.Backoff("example.com")
	}
	timing, _ := r.HostTiming("example.com")
	assert.Equal(t, 30*time.Second, timing.BackOffDelay())
}

func TestJitter_Bounded(t *testing.T) {
	r := NewConcurrentRateLimiter()
	r.SetRandomSeed(7)
	r.SetJitter(10 * time.Millisecond)

	for i := 0; i < 50; i++ {
		j := r.computeJitter(r.Jitter())
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, 10*time.Millisecond)
	}
}

func TestWait_SpacesConsecutiveFetches(t *testing.T) {
	r := NewConcurrentRateLimiter()
	r.SetBaseDelay(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, r.Wait(ctx, "example.com"))
	require.NoError(t, r.Wait(ctx, "example.com"))
	require.NoError(t, r.Wait(ctx, "example.com"))

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestWait_ConcurrentWorkersQueue(t *testing.T) {
	r := NewConcurrentRateLimiter()
	r.SetBaseDelay(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Wait(ctx, "example.com"))
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestWait_HostsAreIndependent(t *testing.T) {
	r := NewConcurrentRateLimiter()
	r.SetBaseDelay(time.Hour)
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx, "a.example.com"))
	require.NoError(t, r.Wait(ctx, "b.example.com"))
}

func TestWait_ContextCancelled(t *testing.T) {
	r := NewConcurrentRateLimiter()
	r.SetBaseDelay(time.Hour)
	require.NoError(t, r.Wait(context.Background(), "example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx, "example.com"), context.DeadlineExceeded)
}
