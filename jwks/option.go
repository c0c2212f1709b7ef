package jwks

import (
	"errors"
	"net/http"
	"time"
)

// ProviderOption is how options for the Provider are set up.
type ProviderOption func(*Provider) error

// WithCustomClient will set a custom *http.Client on the *Provider.
func WithCustomClient(c *http.Client) ProviderOption {
	return func(p *Provider) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		p.Client = c
		return nil
	}
}

// CacheOption is how options for the Cache are set up.
type CacheOption func(*Cache) error

// WithDefaultTTL sets the TTL used when a caller passes none.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) error {
		if ttl <= 0 {
			return errors.New("default TTL must be positive")
		}
		c.defaultTTL = ttl
		return nil
	}
}

// WithFetchTimeout bounds every fetch, on top of the caller's context.
func WithFetchTimeout(timeout time.Duration) CacheOption {
	return func(c *Cache) error {
		if timeout <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		c.fetchTimeout = timeout
		return nil
	}
}

// WithMinRefreshInterval sets how long Refresh refuses to fetch an
// authority again. Zero disables throttling.
func WithMinRefreshInterval(interval time.Duration) CacheOption {
	return func(c *Cache) error {
		if interval < 0 {
			return errors.New("refresh interval cannot be negative")
		}
		c.minRefreshInterval = interval
		return nil
	}
}

// WithMaxEntries bounds the number of cached authorities. The least
// recently used entry is evicted first. Zero means unlimited.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) error {
		if n < 0 {
			return errors.New("max entries cannot be negative")
		}
		c.maxEntries = n
		return nil
	}
}

// WithLogger sets the logger for fetch events.
func WithLogger(logger Logger) CacheOption {
	return func(c *Cache) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}
