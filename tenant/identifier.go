// Package tenant extracts a tenant id from an HTTP request.
//
// Each Identifier looks at one signal and returns "" when that signal is
// absent. FirstOf combines them in the order the deployment chooses and
// Resolve falls back to DefaultTenantID.
package tenant

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/auth0/go-tenant-jwt-middleware/domain"
	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

const (
	// DefaultTenantID is used when no identifier found a tenant.
	DefaultTenantID = "default"
	// DefaultQueryParameter is read by ByQueryString("").
	DefaultQueryParameter = "Tenant"
	// DefaultClaimType is read by ByClaim("").
	DefaultClaimType = "Tenant"
)

// ErrNoRequestURL is returned when an identifier needs the request URL or
// host and the request carries none.
var ErrNoRequestURL = errors.New("no display url for request")

// Identifier extracts a tenant id from a request. An empty id with a nil
// error means the signal was not present.
type Identifier interface {
	TenantID(r *http.Request) (string, error)
}

// IdentifierFunc adapts a function to Identifier.
type IdentifierFunc func(r *http.Request) (string, error)

// TenantID implements Identifier.
func (f IdentifierFunc) TenantID(r *http.Request) (string, error) {
	return f(r)
}

// BySubdomain returns the subdomain of the request host, e.g. "acme" for
// "acme.example.com". IP hosts carry no tenant.
func BySubdomain(parser *domain.Parser) Identifier {
	return BySubdomainBehindProxy(parser, nil)
}

// BySubdomainBehindProxy is BySubdomain for the host reported by trusted
// reverse proxies. A nil config trusts no forwarded header.
func BySubdomainBehindProxy(parser *domain.Parser, config *TrustedProxyConfig) Identifier {
	return IdentifierFunc(func(r *http.Request) (string, error) {
		display, err := DisplayURL(r, config)
		if err != nil {
			return "", err
		}

		host := display.Hostname()
		if net.ParseIP(host) != nil {
			return "", nil
		}

		info, err := parser.Parse(host)
		if err != nil {
			return "", fmt.Errorf("failed to parse request host: %w", err)
		}
		return info.SubDomain, nil
	})
}

// ByQueryString reads the tenant from a query parameter. An empty param
// means DefaultQueryParameter.
func ByQueryString(param string) Identifier {
	if param == "" {
		param = DefaultQueryParameter
	}
	return IdentifierFunc(func(r *http.Request) (string, error) {
		if r.URL == nil {
			return "", ErrNoRequestURL
		}
		return strings.TrimSpace(r.URL.Query().Get(param)), nil
	})
}

// ByClaim reads the tenant from a claim of the principal already stored in
// the request context. An empty claimType means DefaultClaimType.
func ByClaim(claimType string) Identifier {
	if claimType == "" {
		claimType = DefaultClaimType
	}
	return IdentifierFunc(func(r *http.Request) (string, error) {
		principal, ok := validator.PrincipalFromContext(r.Context())
		if !ok {
			return "", nil
		}
		id, _ := principal.FindFirst(claimType)
		return strings.TrimSpace(id), nil
	})
}

// ByHeader reads the tenant from a request header.
func ByHeader(name string) Identifier {
	return IdentifierFunc(func(r *http.Request) (string, error) {
		return strings.TrimSpace(r.Header.Get(name)), nil
	})
}

// FirstOf tries identifiers in order and returns the first non-empty id.
// A host that does not parse as a domain counts as absent; any other
// error stops the search.
func FirstOf(identifiers ...Identifier) Identifier {
	return IdentifierFunc(func(r *http.Request) (string, error) {
		for _, identifier := range identifiers {
			id, err := identifier.TenantID(r)
			if err != nil {
				if isParseError(err) {
					continue
				}
				return "", err
			}
			if id != "" {
				return id, nil
			}
		}
		return "", nil
	})
}

// Resolve runs identifier and falls back to DefaultTenantID, also when the
// host does not parse as a domain.
func Resolve(identifier Identifier, r *http.Request) (string, error) {
	if identifier == nil {
		return DefaultTenantID, nil
	}
	id, err := identifier.TenantID(r)
	if err != nil {
		if !isParseError(err) {
			return "", err
		}
		id = ""
	}
	if id == "" {
		return DefaultTenantID, nil
	}
	return id, nil
}

func isParseError(err error) bool {
	var parseErr *domain.ParseError
	return errors.As(err, &parseErr)
}
