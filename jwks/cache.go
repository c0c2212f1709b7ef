package jwks

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Defaults for NewCache.
const (
	DefaultTTL                = 120 * time.Second
	DefaultFetchTimeout       = 30 * time.Second
	DefaultMinRefreshInterval = 30 * time.Second
	DefaultMaxEntries         = 1000
)

// Logger defines the logging interface used by the cache.
// It is compatible with log/slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Cache memoizes Metadata per authority string. Concurrent misses for the
// same authority share one fetch. Failed fetches are never stored.
type Cache struct {
	fetcher Fetcher
	group   singleflight.Group
	now     func() time.Time
	logger  Logger

	defaultTTL         time.Duration
	fetchTimeout       time.Duration
	minRefreshInterval time.Duration
	maxEntries         int

	mu      sync.RWMutex
	entries map[string]*entry
	lru     *list.List
}

type entry struct {
	meta        *Metadata
	lastRefresh time.Time
	element     *list.Element
}

// NewCache creates a Cache in front of fetcher.
//
// Optional options:
//   - WithDefaultTTL: TTL when Get is called without one (default: 120s)
//   - WithFetchTimeout: bound on each fetch (default: 30s)
//   - WithMinRefreshInterval: spacing of forced refreshes (default: 30s)
//   - WithMaxEntries: LRU bound on cached authorities (default: 1000)
func NewCache(fetcher Fetcher, opts ...CacheOption) (*Cache, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required but was nil")
	}

	c := &Cache{
		fetcher:            fetcher,
		now:                time.Now,
		defaultTTL:         DefaultTTL,
		fetchTimeout:       DefaultFetchTimeout,
		minRefreshInterval: DefaultMinRefreshInterval,
		maxEntries:         DefaultMaxEntries,
		entries:            make(map[string]*entry),
		lru:                list.New(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return c, nil
}

// Get returns the cached metadata of authority, fetching it when missing
// or older than ttl. A ttl of zero means the cache default.
func (c *Cache) Get(ctx context.Context, authority string, ttl time.Duration) (*Metadata, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if meta := c.fresh(authority); meta != nil {
		return meta, nil
	}
	return c.fetch(ctx, authority, ttl, false)
}

// Refresh fetches authority again even if the cached entry is fresh. It is
// meant for signing-key-not-found failures. Within the minimum refresh
// interval of the previous successful forced refresh it returns the cached
// metadata and ErrRefreshThrottled without fetching.
func (c *Cache) Refresh(ctx context.Context, authority string, ttl time.Duration) (*Metadata, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	c.mu.Lock()
	e, ok := c.entries[authority]
	if ok && !e.lastRefresh.IsZero() && now.Sub(e.lastRefresh) < c.minRefreshInterval {
		meta := e.meta
		c.mu.Unlock()
		return meta, ErrRefreshThrottled
	}
	c.mu.Unlock()

	meta, err := c.fetch(ctx, authority, ttl, true)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if e, ok := c.entries[authority]; ok {
		e.lastRefresh = now
	}
	c.mu.Unlock()
	return meta, nil
}

// Invalidate drops the cached entry of authority.
func (c *Cache) Invalidate(authority string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(authority)
}

// Len returns the number of cached authorities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) fresh(authority string) *Metadata {
	c.mu.RLock()
	e, ok := c.entries[authority]
	var meta *Metadata
	if ok && c.now().Before(e.meta.ExpiresAt()) {
		meta = e.meta
	}
	c.mu.RUnlock()

	if meta != nil && c.maxEntries > 0 {
		c.mu.Lock()
		if e, ok := c.entries[authority]; ok {
			c.lru.MoveToFront(e.element)
		}
		c.mu.Unlock()
	}
	return meta
}

// fetch joins or starts the single flight for authority. Each waiter
// stops waiting when its own context ends. A waiter whose context is still
// live but who got the cancellation of the leader retries once.
func (c *Cache) fetch(ctx context.Context, authority string, ttl time.Duration, force bool) (*Metadata, error) {
	for attempt := 0; ; attempt++ {
		ch := c.group.DoChan(authority, func() (any, error) {
			// A flight that finished between the caller's lookup and
			// DoChan has already stored the entry.
			if !force {
				if meta := c.fresh(authority); meta != nil {
					return meta, nil
				}
			}
			return c.load(ctx, authority, ttl)
		})

		select {
		case <-ctx.Done():
			return nil, &FetchError{Authority: authority, Err: ctx.Err()}
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(*Metadata), nil
			}
			if attempt == 0 && ctx.Err() == nil && isContextError(res.Err) {
				continue
			}
			return nil, res.Err
		}
	}
}

func (c *Cache) load(ctx context.Context, authority string, ttl time.Duration) (*Metadata, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	started := c.now()
	meta, err := c.fetcher.Fetch(fetchCtx, authority)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("metadata fetch failed",
				"authority", authority,
				"error", err)
		}
		return nil, &FetchError{Authority: authority, Err: err}
	}

	stored := *meta
	stored.Authority = authority
	stored.FetchedAt = c.now()
	stored.TTL = ttl

	c.mu.Lock()
	c.store(authority, &stored)
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("metadata fetched",
			"authority", authority,
			"issuer", stored.Issuer,
			"keys", len(stored.SigningKeys),
			"duration", c.now().Sub(started))
	}
	return &stored, nil
}

// store must be called with mu held.
func (c *Cache) store(authority string, meta *Metadata) {
	if e, ok := c.entries[authority]; ok {
		e.meta = meta
		c.lru.MoveToFront(e.element)
		return
	}

	c.entries[authority] = &entry{meta: meta, element: c.lru.PushFront(authority)}
	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(string))
	}
}

// remove must be called with mu held.
func (c *Cache) remove(authority string) {
	e, ok := c.entries[authority]
	if !ok {
		return
	}
	c.lru.Remove(e.element)
	delete(c.entries, authority)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
