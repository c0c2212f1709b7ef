/*
Package jwks fetches and caches the metadata of identity provider
authorities: the issuer and signing keys published through OpenID Connect
discovery.

# Provider

Provider resolves {authority}/.well-known/openid-configuration, then
downloads the jwks_uri it advertises:

	provider, err := jwks.NewProvider(jwks.WithCustomClient(client))
	meta, err := provider.Fetch(ctx, "https://idp.example.com/realms/acme")

# Cache

Cache memoizes metadata per authority string, not per tenant, so tenants
sharing an identity provider share one entry:

	cache, err := jwks.NewCache(provider,
	    jwks.WithDefaultTTL(10*time.Minute),
	    jwks.WithMaxEntries(1000),
	)
	meta, err := cache.Get(ctx, authority, ttl)

Concurrent misses for one authority are collapsed into a single fetch with
golang.org/x/sync/singleflight. Every waiter can give up through its own
context. A failed or cancelled fetch is returned as a *FetchError and never
stored.

When a token names a key the cached metadata does not contain, call
Refresh. Forced refreshes of one authority are spaced by
WithMinRefreshInterval so that tokens with random key ids cannot turn into
a request flood against the identity provider.
*/
package jwks
