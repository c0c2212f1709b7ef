// Package josev4 provides a token handler backed by go-jose/v4.
package josev4

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

// knownAlgorithms is what go-jose is asked to parse. The per-request
// allow list is applied afterwards so that a disallowed alg is reported as
// a signature failure rather than a malformed token.
var knownAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.EdDSA,
	jose.HS256, jose.HS384, jose.HS512,
}

// Option is how options for the Validator are set up.
type Option func(*Validator) error

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}

// Validator implements validator.TokenHandler with go-jose.
type Validator struct {
	now func() time.Time
}

// New sets up a new Validator.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return v, nil
}

// CanRead implements validator.TokenHandler.
func (v *Validator) CanRead(token string) bool {
	return validator.CanReadCompact(token)
}

// ValidateToken implements validator.TokenHandler.
func (v *Validator) ValidateToken(_ context.Context, token string, params validator.Parameters) (*validator.ValidatedToken, error) {
	parsed, err := jwt.ParseSigned(token, knownAlgorithms)
	if err != nil {
		return nil, &validator.MalformedTokenError{Err: err}
	}
	if len(parsed.Headers) != 1 {
		return nil, &validator.MalformedTokenError{Err: fmt.Errorf("expected one signature, got %d", len(parsed.Headers))}
	}

	header := parsed.Headers[0]
	if !params.AllowsAlgorithm(header.Algorithm) {
		return nil, &validator.InvalidSignatureError{Err: fmt.Errorf("algorithm %q is not allowed", header.Algorithm)}
	}

	keys := params.CandidateKeys(header.KeyID)
	if len(keys) == 0 {
		return nil, &validator.SignatureKeyNotFoundError{KeyID: header.KeyID}
	}

	var errs []error
	for _, key := range keys {
		var raw any
		if err := key.Raw(&raw); err != nil {
			errs = append(errs, err)
			continue
		}

		var all map[string]any
		if err := parsed.Claims(raw, &all); err != nil {
			errs = append(errs, err)
			continue
		}

		claims, err := validator.ClaimsFromMap(all)
		if err != nil {
			return nil, err
		}
		return validator.Complete(token, header.KeyID, header.Algorithm, claims, params, v.now())
	}

	return nil, &validator.InvalidSignatureError{Err: errors.Join(errs...)}
}
