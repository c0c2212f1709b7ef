package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidToken is matched by every validation error of this package
// through errors.Is.
var ErrInvalidToken = errors.New("token is invalid")

// Machine-readable error codes.
const (
	CodeTokenMalformed       = "token_malformed"
	CodeInvalidAudience      = "invalid_audience"
	CodeInvalidIssuer        = "invalid_issuer"
	CodeNoExpiration         = "token_no_expiration"
	CodeInvalidLifetime      = "invalid_lifetime"
	CodeTokenNotYetValid     = "token_not_yet_valid"
	CodeTokenExpired         = "token_expired"
	CodeSignatureKeyNotFound = "jwks_key_not_found"
	CodeInvalidSignature     = "invalid_signature"
)

// Coder is implemented by all validation errors.
type Coder interface {
	Code() string
}

// CodeOf returns the code of the first validation error in err's tree, or
// "" when there is none.
func CodeOf(err error) string {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

type invalidToken struct{}

func (invalidToken) Is(target error) bool {
	return target == ErrInvalidToken
}

// MalformedTokenError means the token could not be decoded at all.
type MalformedTokenError struct {
	invalidToken
	Err error
}

func (e *MalformedTokenError) Error() string {
	if e.Err == nil {
		return "token is malformed"
	}
	return "token is malformed: " + e.Err.Error()
}
func (e *MalformedTokenError) Unwrap() error { return e.Err }
func (e *MalformedTokenError) Code() string  { return CodeTokenMalformed }

// InvalidAudienceError means none of the token audiences is accepted.
type InvalidAudienceError struct {
	invalidToken
	Audiences []string
}

func (e *InvalidAudienceError) Error() string {
	return fmt.Sprintf("audience %q is invalid", strings.Join(e.Audiences, ", "))
}
func (e *InvalidAudienceError) Code() string { return CodeInvalidAudience }

// InvalidIssuerError means the token issuer is not accepted.
type InvalidIssuerError struct {
	invalidToken
	Issuer string
}

func (e *InvalidIssuerError) Error() string {
	return fmt.Sprintf("issuer %q is invalid", e.Issuer)
}
func (e *InvalidIssuerError) Code() string { return CodeInvalidIssuer }

// NoExpirationError means the token has no exp claim where one is required.
type NoExpirationError struct {
	invalidToken
}

func (e *NoExpirationError) Error() string { return "token has no expiration" }
func (e *NoExpirationError) Code() string  { return CodeNoExpiration }

// InvalidLifetimeError means nbf is after exp.
type InvalidLifetimeError struct {
	invalidToken
	NotBefore time.Time
	Expires   time.Time
}

func (e *InvalidLifetimeError) Error() string {
	return fmt.Sprintf("token lifetime is invalid: not before %s, expires %s",
		e.NotBefore.Format(time.RFC3339), e.Expires.Format(time.RFC3339))
}
func (e *InvalidLifetimeError) Code() string { return CodeInvalidLifetime }

// NotYetValidError means the token nbf lies in the future.
type NotYetValidError struct {
	invalidToken
	NotBefore time.Time
}

func (e *NotYetValidError) Error() string {
	return "token is not valid before " + e.NotBefore.Format(time.RFC3339)
}
func (e *NotYetValidError) Code() string { return CodeTokenNotYetValid }

// ExpiredError means the token exp lies in the past.
type ExpiredError struct {
	invalidToken
	Expires time.Time
}

func (e *ExpiredError) Error() string {
	return "token expired at " + e.Expires.Format(time.RFC3339)
}
func (e *ExpiredError) Code() string { return CodeTokenExpired }

// SignatureKeyNotFoundError means no configured signing key matches the
// token. Seeing it usually warrants refreshing the authority metadata.
type SignatureKeyNotFoundError struct {
	invalidToken
	KeyID string
}

func (e *SignatureKeyNotFoundError) Error() string {
	if e.KeyID == "" {
		return "signature key not found"
	}
	return fmt.Sprintf("signature key %q not found", e.KeyID)
}
func (e *SignatureKeyNotFoundError) Code() string { return CodeSignatureKeyNotFound }

// InvalidSignatureError means the signature did not verify.
type InvalidSignatureError struct {
	invalidToken
	Err error
}

func (e *InvalidSignatureError) Error() string {
	if e.Err == nil {
		return "signature is invalid"
	}
	return "signature is invalid: " + e.Err.Error()
}
func (e *InvalidSignatureError) Unwrap() error { return e.Err }
func (e *InvalidSignatureError) Code() string  { return CodeInvalidSignature }

// IsSignatureKeyNotFound reports whether err's tree holds a
// SignatureKeyNotFoundError.
func IsSignatureKeyNotFound(err error) bool {
	var target *SignatureKeyNotFoundError
	return errors.As(err, &target)
}
