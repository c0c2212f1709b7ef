// Package jwtgo provides a token handler backed by golang-jwt/jwt.
package jwtgo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

// Option is how options for the validator are setup.
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

// Validator implements validator.TokenHandler with golang-jwt. Claims are
// checked by the validator package so both handlers fail the same way.
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

// ValidateToken validates the passed in JWT using the jwt-go package.
func (v *Validator) ValidateToken(_ context.Context, token string, params validator.Parameters) (*validator.ValidatedToken, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods(params.Algorithms()),
		jwt.WithoutClaimsValidation(),
		jwt.WithJSONNumber(),
	)

	unverified, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, &validator.MalformedTokenError{Err: err}
	}
	kid, _ := unverified.Header["kid"].(string)

	keys := params.CandidateKeys(kid)
	if len(keys) == 0 {
		return nil, &validator.SignatureKeyNotFoundError{KeyID: kid}
	}

	var errs []error
	for _, key := range keys {
		var raw any
		if err := key.Raw(&raw); err != nil {
			errs = append(errs, err)
			continue
		}

		claims := jwt.MapClaims{}
		parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return raw, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenMalformed) {
				return nil, &validator.MalformedTokenError{Err: err}
			}
			errs = append(errs, err)
			continue
		}

		verified, err := validator.ClaimsFromMap(claims)
		if err != nil {
			return nil, err
		}
		return validator.Complete(token, kid, parsed.Method.Alg(), verified, params, v.now())
	}

	return nil, &validator.InvalidSignatureError{Err: errors.Join(errs...)}
}
