package jwks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func countingFetcher(count *int32, delay time.Duration) Fetcher {
	return FetcherFunc(func(ctx context.Context, authority string) (*Metadata, error) {
		atomic.AddInt32(count, 1)
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return &Metadata{Issuer: authority + "/"}, nil
	})
}

func Test_Cache_Get(t *testing.T) {
	t.Run("It fetches once for 100 concurrent callers", func(t *testing.T) {
		var fetches int32
		cache, err := NewCache(countingFetcher(&fetches, 50*time.Millisecond))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				meta, err := cache.Get(context.Background(), "https://idp/realms/acme", time.Minute)
				assert.NoError(t, err)
				assert.Equal(t, "https://idp/realms/acme/", meta.Issuer)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
	})

	t.Run("It keys entries by authority", func(t *testing.T) {
		var fetches int32
		cache, err := NewCache(countingFetcher(&fetches, 0))
		require.NoError(t, err)

		for _, authority := range []string{"https://a", "https://b", "https://a"} {
			_, err := cache.Get(context.Background(), authority, 0)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(2), fetches)
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("It fetches again once the TTL expired", func(t *testing.T) {
		var fetches int32
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		cache, err := NewCache(countingFetcher(&fetches, 0), WithClock(clock.Now))
		require.NoError(t, err)

		meta, err := cache.Get(context.Background(), "https://idp", 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, meta.TTL)
		assert.Equal(t, clock.Now(), meta.FetchedAt)

		clock.Advance(9 * time.Second)
		_, err = cache.Get(context.Background(), "https://idp", 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int32(1), fetches)

		clock.Advance(2 * time.Second)
		_, err = cache.Get(context.Background(), "https://idp", 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int32(2), fetches)
	})

	t.Run("It uses the default TTL when none is given", func(t *testing.T) {
		var fetches int32
		cache, err := NewCache(countingFetcher(&fetches, 0), WithDefaultTTL(time.Hour))
		require.NoError(t, err)

		meta, err := cache.Get(context.Background(), "https://idp", 0)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, meta.TTL)
	})

	t.Run("It does not cache failures", func(t *testing.T) {
		var calls int32
		boom := errors.New("connection refused")
		cache, err := NewCache(FetcherFunc(func(context.Context, string) (*Metadata, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, boom
			}
			return &Metadata{Issuer: "https://idp/"}, nil
		}))
		require.NoError(t, err)

		_, err = cache.Get(context.Background(), "https://idp", 0)
		require.ErrorIs(t, err, boom)
		require.ErrorIs(t, err, ErrFetch)
		assert.Equal(t, 0, cache.Len())

		meta, err := cache.Get(context.Background(), "https://idp", 0)
		require.NoError(t, err)
		assert.Equal(t, "https://idp/", meta.Issuer)
	})

	t.Run("It does not cache a cancelled fetch", func(t *testing.T) {
		var fetches int32
		cache, err := NewCache(countingFetcher(&fetches, time.Second))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err = cache.Get(ctx, "https://idp", 0)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("It bounds every fetch with the fetch timeout", func(t *testing.T) {
		var fetches int32
		cache, err := NewCache(countingFetcher(&fetches, time.Second), WithFetchTimeout(20*time.Millisecond))
		require.NoError(t, err)

		_, err = cache.Get(context.Background(), "https://idp", 0)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("It lets a live waiter retry after the leader was cancelled", func(t *testing.T) {
		var calls int32
		started := make(chan struct{}, 1)
		cache, err := NewCache(FetcherFunc(func(ctx context.Context, _ string) (*Metadata, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				started <- struct{}{}
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return &Metadata{Issuer: "https://idp/"}, nil
		}))
		require.NoError(t, err)

		leaderCtx, cancelLeader := context.WithCancel(context.Background())
		leaderErr := make(chan error, 1)
		go func() {
			_, err := cache.Get(leaderCtx, "https://idp", 0)
			leaderErr <- err
		}()
		<-started

		waiterMeta := make(chan *Metadata, 1)
		go func() {
			meta, err := cache.Get(context.Background(), "https://idp", 0)
			assert.NoError(t, err)
			waiterMeta <- meta
		}()

		time.Sleep(20 * time.Millisecond)
		cancelLeader()

		assert.ErrorIs(t, <-leaderErr, context.Canceled)
		meta := <-waiterMeta
		require.NotNil(t, meta)
		assert.Equal(t, "https://idp/", meta.Issuer)
	})
}

func Test_Cache_Refresh(t *testing.T) {
	t.Run("It fetches even when the entry is fresh", func(t *testing.T) {
		var fetches int32
		cache, err := NewCache(countingFetcher(&fetches, 0))
		require.NoError(t, err)

		_, err = cache.Get(context.Background(), "https://idp", time.Hour)
		require.NoError(t, err)

		_, err = cache.Refresh(context.Background(), "https://idp", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int32(2), fetches)
	})

	t.Run("It throttles forced refreshes", func(t *testing.T) {
		var fetches int32
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		cache, err := NewCache(countingFetcher(&fetches, 0),
			WithClock(clock.Now),
			WithMinRefreshInterval(time.Minute),
		)
		require.NoError(t, err)

		_, err = cache.Refresh(context.Background(), "https://idp", 0)
		require.NoError(t, err)

		meta, err := cache.Refresh(context.Background(), "https://idp", 0)
		require.ErrorIs(t, err, ErrRefreshThrottled)
		require.NotNil(t, meta)
		assert.Equal(t, int32(1), fetches)

		clock.Advance(time.Minute)
		_, err = cache.Refresh(context.Background(), "https://idp", 0)
		require.NoError(t, err)
		assert.Equal(t, int32(2), fetches)
	})

	t.Run("It does not throttle after a failed refresh", func(t *testing.T) {
		var calls int32
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		cache, err := NewCache(FetcherFunc(func(context.Context, string) (*Metadata, error) {
			if atomic.AddInt32(&calls, 1) == 2 {
				return nil, errors.New("connection reset")
			}
			return &Metadata{Issuer: "https://idp/"}, nil
		}), WithClock(clock.Now))
		require.NoError(t, err)

		_, err = cache.Get(context.Background(), "https://idp", time.Hour)
		require.NoError(t, err)

		_, err = cache.Refresh(context.Background(), "https://idp", time.Hour)
		require.ErrorIs(t, err, ErrFetch)

		clock.Advance(time.Second)
		_, err = cache.Refresh(context.Background(), "https://idp", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls)

		_, err = cache.Refresh(context.Background(), "https://idp", time.Hour)
		assert.ErrorIs(t, err, ErrRefreshThrottled)
	})

	t.Run("It keeps the old entry when a refresh fails", func(t *testing.T) {
		var calls int32
		cache, err := NewCache(FetcherFunc(func(context.Context, string) (*Metadata, error) {
			if atomic.AddInt32(&calls, 1) == 2 {
				return nil, errors.New("down")
			}
			return &Metadata{Issuer: "https://idp/"}, nil
		}), WithMinRefreshInterval(0))
		require.NoError(t, err)

		_, err = cache.Get(context.Background(), "https://idp", time.Hour)
		require.NoError(t, err)

		_, err = cache.Refresh(context.Background(), "https://idp", time.Hour)
		require.ErrorIs(t, err, ErrFetch)

		meta, err := cache.Get(context.Background(), "https://idp", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "https://idp/", meta.Issuer)
		assert.Equal(t, int32(2), calls)
	})
}

func Test_Cache_Eviction(t *testing.T) {
	var fetches int32
	cache, err := NewCache(countingFetcher(&fetches, 0), WithMaxEntries(2))
	require.NoError(t, err)

	ctx := context.Background()
	for _, authority := range []string{"https://a", "https://b", "https://a", "https://c"} {
		_, err := cache.Get(ctx, authority, time.Hour)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())

	// b was the least recently used entry.
	_, err = cache.Get(ctx, "https://a", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(3), fetches)

	_, err = cache.Get(ctx, "https://b", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(4), fetches)

	cache.Invalidate("https://b")
	assert.Equal(t, 1, cache.Len())
}

func Test_Cache_DefaultBound(t *testing.T) {
	var fetches int32
	cache, err := NewCache(countingFetcher(&fetches, 0))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < DefaultMaxEntries+10; i++ {
		_, err := cache.Get(ctx, fmt.Sprintf("https://idp/realms/t%d", i), time.Hour)
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultMaxEntries, cache.Len())
}

func Test_CacheOptions(t *testing.T) {
	fetcher := FetcherFunc(func(context.Context, string) (*Metadata, error) { return &Metadata{}, nil })

	for name, opt := range map[string]CacheOption{
		"default TTL must be positive":        WithDefaultTTL(0),
		"fetch timeout must be positive":      WithFetchTimeout(-1),
		"refresh interval cannot be negative": WithMinRefreshInterval(-time.Second),
		"max entries cannot be negative":      WithMaxEntries(-1),
		"logger cannot be nil":                WithLogger(nil),
		"clock cannot be nil":                 WithClock(nil),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewCache(fetcher, opt)
			assert.EqualError(t, err, "invalid option: "+name)
		})
	}

	_, err := NewCache(nil)
	assert.EqualError(t, err, "fetcher is required but was nil")
}
