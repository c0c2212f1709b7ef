package validator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// DefaultMaxTokenSize bounds the tokens handlers are willing to read.
const DefaultMaxTokenSize = 250 * 1024

// TokenHandler is one token format the pipeline can validate. Handlers are
// tried in order; only those whose CanRead returns true are asked to
// validate.
type TokenHandler interface {
	CanRead(token string) bool
	ValidateToken(ctx context.Context, token string, params Parameters) (*ValidatedToken, error)
}

// ValidatedToken is the outcome of a successful validation.
type ValidatedToken struct {
	Raw       string
	KeyID     string
	Algorithm string
	Claims    Claims
	Principal *Principal
}

// NotBefore returns the nbf claim, zero when absent.
func (t *ValidatedToken) NotBefore() time.Time { return t.Claims.NotBefore }

// Expires returns the exp claim, zero when absent.
func (t *ValidatedToken) Expires() time.Time { return t.Claims.Expiry }

// CanReadCompact reports whether token looks like a compact JWS: three
// base64url segments, the first one a JSON object.
func CanReadCompact(token string) bool {
	if token == "" || len(token) > DefaultMaxTokenSize {
		return false
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	var h map[string]any
	return json.Unmarshal(header, &h) == nil
}

// Complete validates the verified claims against p and builds the
// ValidatedToken. Handlers call it once the signature has been checked.
func Complete(raw, kid, alg string, claims Claims, p Parameters, now time.Time) (*ValidatedToken, error) {
	if err := claims.Validate(p, now); err != nil {
		return nil, err
	}
	return &ValidatedToken{
		Raw:       raw,
		KeyID:     kid,
		Algorithm: alg,
		Claims:    claims,
		Principal: NewPrincipal(claims.All, p.NameClaimType, p.RoleClaimType),
	}, nil
}
