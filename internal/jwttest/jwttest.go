// Package jwttest provides signing keys, tokens and a fake identity
// provider for tests of the packages in this module.
package jwttest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/stretchr/testify/require"
)

// Key is an RSA signing key with its public half.
type Key struct {
	ID      string
	Private jwk.Key
	Public  jwk.Key
}

// NewKey generates a 2048 bit RS256 key with the given kid.
func NewKey(t testing.TB, kid string) *Key {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	private, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, private.Set(jwk.KeyIDKey, kid))
	require.NoError(t, private.Set(jwk.AlgorithmKey, jwa.RS256))

	public, err := jwk.FromRaw(raw.Public())
	require.NoError(t, err)
	require.NoError(t, public.Set(jwk.KeyIDKey, kid))
	require.NoError(t, public.Set(jwk.AlgorithmKey, jwa.RS256))
	require.NoError(t, public.Set(jwk.KeyUsageKey, "sig"))

	return &Key{ID: kid, Private: private, Public: public}
}

// Sign returns a compact RS256 token over claims.
func (k *Key) Sign(t testing.TB, claims map[string]any) string {
	t.Helper()

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	headers := jws.NewHeaders()
	require.NoError(t, headers.Set(jws.KeyIDKey, k.ID))
	require.NoError(t, headers.Set(jws.TypeKey, "JWT"))

	signed, err := jws.Sign(payload, jws.WithKey(jwa.RS256, k.Private, jws.WithProtectedHeaders(headers)))
	require.NoError(t, err)
	return string(signed)
}

// Claims returns a claim set valid for an hour.
func Claims(issuer, audience string) map[string]any {
	now := time.Now()
	return map[string]any{
		"iss": issuer,
		"aud": audience,
		"sub": "1234567890",
		"iat": now.Unix(),
		"nbf": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

// Provider is a fake OpenID provider serving a discovery document and a
// JWKS. The keys it publishes can be swapped while it runs.
type Provider struct {
	*httptest.Server

	DiscoveryRequests atomic.Int32
	JWKSRequests      atomic.Int32

	mu   sync.Mutex
	keys []jwk.Key
	// delay is applied before answering the discovery request.
	delay time.Duration
	fail  atomic.Bool
}

// NewProvider starts a Provider publishing keys. The server is closed
// when the test ends.
func NewProvider(t testing.TB, keys ...*Key) *Provider {
	t.Helper()

	p := &Provider{}
	p.SetKeys(keys...)

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		p.DiscoveryRequests.Add(1)
		p.mu.Lock()
		delay := p.delay
		p.mu.Unlock()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if p.fail.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   p.Issuer(),
			"jwks_uri": p.URL + "/jwks.json",
		})
	})
	mux.HandleFunc("/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		p.JWKSRequests.Add(1)
		p.mu.Lock()
		set := jwk.NewSet()
		for _, k := range p.keys {
			_ = set.AddKey(k)
		}
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

// Issuer is the issuer advertised in the discovery document.
func (p *Provider) Issuer() string {
	return strings.TrimRight(p.URL, "/") + "/"
}

// SetKeys replaces the published keys.
func (p *Provider) SetKeys(keys ...*Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = p.keys[:0]
	for _, k := range keys {
		p.keys = append(p.keys, k.Public)
	}
}

// SetDelay slows down discovery responses.
func (p *Provider) SetDelay(d time.Duration) {
	p.mu.Lock()
	p.delay = d
	p.mu.Unlock()
}

// SetFailing makes discovery answer 503.
func (p *Provider) SetFailing(fail bool) {
	p.fail.Store(fail)
}
