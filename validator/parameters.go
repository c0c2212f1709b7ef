package validator

import (
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Default claim types used when a tenant does not configure its own.
const (
	DefaultNameClaimType = "name"
	DefaultRoleClaimType = "role"
)

// DefaultClockSkew is the tolerance applied to exp and nbf.
const DefaultClockSkew = 5 * time.Minute

// DefaultAlgorithms are the signature algorithms accepted when Parameters
// does not list any.
var DefaultAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// Parameters drive a single token validation. Handlers never modify them;
// the pipeline builds a fresh copy per request with Clone and Merge.
type Parameters struct {
	ValidIssuers   []string
	ValidAudiences []string
	SigningKeys    []jwk.Key
	// ValidAlgorithms restricts the alg header. Empty means DefaultAlgorithms.
	ValidAlgorithms []string

	ValidateIssuer        bool
	ValidateAudience      bool
	ValidateLifetime      bool
	RequireExpirationTime bool
	ClockSkew             time.Duration

	NameClaimType string
	RoleClaimType string
}

// DefaultParameters returns the strict baseline: issuer, audience and
// lifetime are validated and exp is required.
func DefaultParameters() Parameters {
	return Parameters{
		ValidateIssuer:        true,
		ValidateAudience:      true,
		ValidateLifetime:      true,
		RequireExpirationTime: true,
		ClockSkew:             DefaultClockSkew,
		NameClaimType:         DefaultNameClaimType,
		RoleClaimType:         DefaultRoleClaimType,
	}
}

// Clone returns a deep copy of the slices in p. Keys are shared since
// jwk.Key values are not modified during validation.
func (p Parameters) Clone() Parameters {
	p.ValidIssuers = slices.Clone(p.ValidIssuers)
	p.ValidAudiences = slices.Clone(p.ValidAudiences)
	p.SigningKeys = slices.Clone(p.SigningKeys)
	p.ValidAlgorithms = slices.Clone(p.ValidAlgorithms)
	return p
}

// Merge returns a copy of p whose issuers and keys are extended with the
// remote ones. Local values are kept so that both old and new keys verify
// during a rollover.
func (p Parameters) Merge(issuer string, keys []jwk.Key) Parameters {
	out := p.Clone()
	if issuer != "" && !slices.Contains(out.ValidIssuers, issuer) {
		out.ValidIssuers = append(out.ValidIssuers, issuer)
	}
	out.SigningKeys = append(out.SigningKeys, keys...)
	return out
}

// AllowsAlgorithm reports whether alg may sign an accepted token.
func (p Parameters) AllowsAlgorithm(alg string) bool {
	allowed := p.ValidAlgorithms
	if len(allowed) == 0 {
		allowed = DefaultAlgorithms
	}
	return slices.Contains(allowed, alg)
}

// Algorithms returns the accepted algorithms.
func (p Parameters) Algorithms() []string {
	if len(p.ValidAlgorithms) == 0 {
		return slices.Clone(DefaultAlgorithms)
	}
	return slices.Clone(p.ValidAlgorithms)
}

// CandidateKeys returns the keys that may verify a token with the given
// kid. Without a kid every key is a candidate.
func (p Parameters) CandidateKeys(kid string) []jwk.Key {
	if kid == "" {
		return slices.Clone(p.SigningKeys)
	}
	var out []jwk.Key
	for _, key := range p.SigningKeys {
		if key.KeyID() == kid {
			out = append(out, key)
		}
	}
	return out
}
