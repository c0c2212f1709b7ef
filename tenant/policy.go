package tenant

import (
	"fmt"
	"strings"

	"github.com/auth0/go-tenant-jwt-middleware/domain"
)

// Source names accepted by FromPolicy.
const (
	SourceClaim     = "claim"
	SourceQuery     = "query"
	SourceSubdomain = "subdomain"
	SourceHeader    = "header"
)

// PolicyOptions configures the identifiers built by FromPolicy.
type PolicyOptions struct {
	Parser     *domain.Parser
	QueryParam string
	ClaimType  string
	Header     string
	// Proxies, when set, lets the subdomain source read forwarded hosts.
	Proxies *TrustedProxyConfig
}

// FromPolicy builds FirstOf from a comma separated list of source names,
// e.g. "claim,query,subdomain", so the order can come from configuration.
func FromPolicy(policy string, opts PolicyOptions) (Identifier, error) {
	var identifiers []Identifier
	for _, name := range strings.Split(policy, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case SourceClaim:
			identifiers = append(identifiers, ByClaim(opts.ClaimType))
		case SourceQuery:
			identifiers = append(identifiers, ByQueryString(opts.QueryParam))
		case SourceSubdomain:
			parser := opts.Parser
			if parser == nil {
				parser = domain.NewParser()
			}
			identifiers = append(identifiers, BySubdomainBehindProxy(parser, opts.Proxies))
		case SourceHeader:
			if opts.Header == "" {
				return nil, fmt.Errorf("tenant source %q needs a header name", SourceHeader)
			}
			identifiers = append(identifiers, ByHeader(opts.Header))
		default:
			return nil, fmt.Errorf("unknown tenant source %q", name)
		}
	}
	if len(identifiers) == 0 {
		return nil, fmt.Errorf("tenant policy %q names no source", policy)
	}
	return FirstOf(identifiers...), nil
}
