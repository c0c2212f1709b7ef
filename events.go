package tenantjwt

import (
	"fmt"
	"net/http"

	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

// Events are optional hooks into Authenticate, Challenge and Forbid. A hook
// returning an error aborts the operation with that error.
type Events struct {
	// MessageReceived runs first. It may supply the token or end
	// authentication by setting Result.
	MessageReceived func(*MessageReceivedContext) error
	// TokenValidated runs after a successful validation and may reject
	// the token by setting Result.
	TokenValidated func(*TokenValidatedContext) error
	// AuthenticationFailed runs for rejected tokens and for faults. Setting
	// Result replaces what Authenticate returns.
	AuthenticationFailed func(*AuthenticationFailedContext) error
	// Challenge runs before the 401 is written. Setting Handled skips the
	// default response.
	Challenge func(*ChallengeContext) error
	// Forbidden runs before the 403 is written.
	Forbidden func(*ForbiddenContext) error
}

// EventError is returned by Authenticate when a hook fails. It bypasses
// AuthenticationFailed.
type EventError struct {
	Event string
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s event: %s", e.Event, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// MessageReceivedContext is passed to Events.MessageReceived.
type MessageReceivedContext struct {
	Request *http.Request
	// Token, when set by the hook, is used instead of extracting one.
	Token  string
	Result *Result
}

// NoResult ends authentication without a result.
func (c *MessageReceivedContext) NoResult() {
	r := NoResultFor("")
	c.Result = &r
}

// TokenValidatedContext is passed to Events.TokenValidated.
type TokenValidatedContext struct {
	Request   *http.Request
	TenantID  string
	Principal *validator.Principal
	Token     *validator.ValidatedToken
	Result    *Result
}

// Fail rejects the validated token.
func (c *TokenValidatedContext) Fail(err error) {
	r := FailWith(c.TenantID, err)
	c.Result = &r
}

// AuthenticationFailedContext is passed to Events.AuthenticationFailed.
type AuthenticationFailedContext struct {
	Request  *http.Request
	TenantID string
	Err      error
	Result   *Result
}

// ChallengeContext is passed to Events.Challenge. The hook may change the
// fields that end up in the WWW-Authenticate header.
type ChallengeContext struct {
	Request          *http.Request
	Response         http.ResponseWriter
	Failure          error
	Realm            string
	Error            string
	ErrorDescription string
	ErrorURI         string
	Handled          bool
}

// ForbiddenContext is passed to Events.Forbidden.
type ForbiddenContext struct {
	Request   *http.Request
	Response  http.ResponseWriter
	Principal *validator.Principal
	Handled   bool
}
