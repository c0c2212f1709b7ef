package jwks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/auth0/go-tenant-jwt-middleware/internal/oidc"
)

// maxJWKSSize bounds the key set document. Real key sets are a few KB.
const maxJWKSSize = 1 << 20

var (
	// ErrFetch is matched by every FetchError.
	ErrFetch = errors.New("metadata fetch failed")
	// ErrRefreshThrottled is returned by Cache.Refresh when the previous
	// forced refresh of the same authority was too recent.
	ErrRefreshThrottled = errors.New("metadata refresh throttled")
)

// FetchError is returned when the metadata of an authority could not be
// retrieved, including when the fetch was cancelled or timed out.
type FetchError struct {
	Authority string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch metadata for %s: %v", e.Authority, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is allows the error to be compared with ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// Metadata is what validation needs from an authority.
type Metadata struct {
	Authority   string
	Issuer      string
	JWKSURI     string
	SigningKeys []jwk.Key
	FetchedAt   time.Time
	TTL         time.Duration
}

// ExpiresAt is the moment the cache stops serving m.
func (m *Metadata) ExpiresAt() time.Time {
	return m.FetchedAt.Add(m.TTL)
}

// Fetcher retrieves the metadata of an authority. Implementations must
// honour ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, authority string) (*Metadata, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, authority string) (*Metadata, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, authority string) (*Metadata, error) {
	return f(ctx, authority)
}

// Provider fetches metadata over HTTP: the discovery document at
// {authority}/.well-known/openid-configuration and then its jwks_uri.
type Provider struct {
	Client *http.Client
}

// NewProvider builds and returns a new *Provider.
//
// Optional options:
//   - WithCustomClient: Custom HTTP client
func NewProvider(opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		Client: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return p, nil
}

// Fetch implements Fetcher.
func (p *Provider) Fetch(ctx context.Context, authority string) (*Metadata, error) {
	endpoints, err := oidc.GetWellKnownEndpoints(ctx, p.Client, oidc.DiscoveryURL(authority))
	if err != nil {
		return nil, err
	}

	set, err := p.fetchKeySet(ctx, endpoints.JWKSURI)
	if err != nil {
		return nil, err
	}

	keys := make([]jwk.Key, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok || key.KeyUsage() == "enc" {
			continue
		}
		keys = append(keys, key)
	}

	return &Metadata{
		Authority:   authority,
		Issuer:      endpoints.Issuer,
		JWKSURI:     endpoints.JWKSURI,
		SigningKeys: keys,
	}, nil
}

func (p *Provider) fetchKeySet(ctx context.Context, jwksURI string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS request returned status %d, expected 200", resp.StatusCode)
	}

	set, err := jwk.ParseReader(io.LimitReader(resp.Body, maxJWKSSize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return set, nil
}
