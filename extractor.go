package tenantjwt

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractor pulls the raw token out of a request. A request without a
// token yields "" and no error; errors are for tokens that are present but
// unusable.
type TokenExtractor func(r *http.Request) (string, error)

// bearerScheme is compared case-insensitively (RFC 7235 section 2.1).
const bearerScheme = "Bearer"

// AuthHeaderTokenExtractor reads the credentials of an
// "Authorization: Bearer <token>" header. Any other scheme yields "".
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	scheme, credentials, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", nil
	}
	return strings.TrimSpace(credentials), nil
}

// CookieTokenExtractor reads the token from the cookie called name.
func CookieTokenExtractor(name string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(name)
		switch {
		case errors.Is(err, http.ErrNoCookie):
			return "", nil
		case err != nil:
			return "", err
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor reads the token from the query parameter param,
// e.g. access_token for WebSocket upgrades that cannot set headers.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		if r.URL == nil {
			return "", nil
		}
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor tries extractors in order. The first token found
// wins and the first error stops the search.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, extract := range extractors {
			if token, err := extract(r); err != nil || token != "" {
				return token, err
			}
		}
		return "", nil
	}
}
