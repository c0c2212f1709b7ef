package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// Validator is the default TokenHandler. It verifies compact JWS tokens
// with lestrrat-go/jwx against the signing keys of the parameters.
type Validator struct {
	now          func() time.Time
	maxTokenSize int
}

// New sets up a Validator.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		now:          time.Now,
		maxTokenSize: DefaultMaxTokenSize,
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return v, nil
}

// CanRead implements TokenHandler.
func (v *Validator) CanRead(token string) bool {
	return len(token) <= v.maxTokenSize && CanReadCompact(token)
}

// ValidateToken implements TokenHandler.
func (v *Validator) ValidateToken(_ context.Context, token string, params Parameters) (*ValidatedToken, error) {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, &MalformedTokenError{Err: err}
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return nil, &MalformedTokenError{Err: fmt.Errorf("expected one signature, got %d", len(sigs))}
	}

	headers := sigs[0].ProtectedHeaders()
	kid := headers.KeyID()
	alg := headers.Algorithm()
	if !params.AllowsAlgorithm(alg.String()) {
		return nil, &InvalidSignatureError{Err: fmt.Errorf("algorithm %q is not allowed", alg)}
	}

	payload, err := verify([]byte(token), alg, kid, params)
	if err != nil {
		return nil, err
	}

	claims, err := ParseClaims(payload)
	if err != nil {
		return nil, err
	}
	return Complete(token, kid, alg.String(), claims, params, v.now())
}

func verify(token []byte, alg jwa.SignatureAlgorithm, kid string, params Parameters) ([]byte, error) {
	keys := params.CandidateKeys(kid)
	if len(keys) == 0 {
		return nil, &SignatureKeyNotFoundError{KeyID: kid}
	}

	var errs []error
	for _, key := range keys {
		payload, err := jws.Verify(token, jws.WithKey(alg, key))
		if err == nil {
			return payload, nil
		}
		errs = append(errs, err)
	}
	return nil, &InvalidSignatureError{Err: errors.Join(errs...)}
}
