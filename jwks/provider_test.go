package jwks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auth0/go-tenant-jwt-middleware/internal/jwttest"
)

func Test_Provider(t *testing.T) {
	key := jwttest.NewKey(t, "kid")
	idp := jwttest.NewProvider(t, key)

	provider, err := NewProvider(WithCustomClient(idp.Client()))
	require.NoError(t, err)

	t.Run("It fetches the keys after calling the discovery endpoint", func(t *testing.T) {
		meta, err := provider.Fetch(context.Background(), idp.URL)
		require.NoError(t, err)

		assert.Equal(t, idp.Issuer(), meta.Issuer)
		assert.Equal(t, idp.URL+"/jwks.json", meta.JWKSURI)
		require.Len(t, meta.SigningKeys, 1)
		assert.Equal(t, "kid", meta.SigningKeys[0].KeyID())
		assert.Equal(t, int32(1), idp.DiscoveryRequests.Load())
		assert.Equal(t, int32(1), idp.JWKSRequests.Load())
	})

	t.Run("It accepts an authority with a trailing slash", func(t *testing.T) {
		_, err := provider.Fetch(context.Background(), idp.URL+"/")
		require.NoError(t, err)
	})

	t.Run("It fails when discovery fails", func(t *testing.T) {
		idp.SetFailing(true)
		defer idp.SetFailing(false)

		_, err := provider.Fetch(context.Background(), idp.URL)
		assert.ErrorContains(t, err, "unexpected status code 503")
	})

	t.Run("It fails when the key set cannot be parsed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/jwks.json" {
				_, _ = w.Write([]byte(`{"keys": "nope"}`))
				return
			}
			_, _ = w.Write([]byte(`{"issuer": "x", "jwks_uri": "http://` + r.Host + `/jwks.json"}`))
		}))
		defer server.Close()

		_, err := provider.Fetch(context.Background(), server.URL)
		assert.ErrorContains(t, err, "failed to parse JWKS")
	})

	t.Run("It rejects a nil client", func(t *testing.T) {
		_, err := NewProvider(WithCustomClient(nil))
		assert.EqualError(t, err, "invalid option: HTTP client cannot be nil")
	})
}

func Test_FetchError(t *testing.T) {
	err := error(&FetchError{Authority: "https://idp", Err: context.Canceled})

	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualError(t, err, "failed to fetch metadata for https://idp: context canceled")

	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
}
