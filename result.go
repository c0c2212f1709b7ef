package tenantjwt

import (
	"context"
	"time"

	"github.com/auth0/go-tenant-jwt-middleware/tenantconfig"
	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

// Outcome is the terminal state of an authentication attempt.
type Outcome int

const (
	// NoResult means bearer authentication does not apply to the request,
	// usually because no token was presented.
	NoResult Outcome = iota
	// Success means a token was validated.
	Success
	// Fail means a token was presented and rejected.
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Fail:
		return "fail"
	default:
		return "no_result"
	}
}

// Result is what Authenticate produces.
type Result struct {
	Outcome  Outcome
	TenantID string
	// Config is the resolved tenant configuration, nil before resolution.
	Config    *tenantconfig.TenantAuthConfig
	Principal *validator.Principal
	Token     *validator.ValidatedToken
	// NotBefore and ExpiresAt are nil when the token does not carry them.
	NotBefore *time.Time
	ExpiresAt *time.Time
	// Failure is set for Fail. It is a single error or an errors.Join of
	// every handler's failure.
	Failure error
}

// Succeeded reports whether r is a Success.
func (r Result) Succeeded() bool { return r.Outcome == Success }

// NoResultFor returns a NoResult for tenantID.
func NoResultFor(tenantID string) Result {
	return Result{Outcome: NoResult, TenantID: tenantID}
}

// FailWith returns a Fail carrying err.
func FailWith(tenantID string, err error) Result {
	return Result{Outcome: Fail, TenantID: tenantID, Failure: err}
}

func successFor(tenantID string, cfg *tenantconfig.TenantAuthConfig, token *validator.ValidatedToken) Result {
	return Result{
		Outcome:   Success,
		TenantID:  tenantID,
		Config:    cfg,
		Principal: token.Principal,
		Token:     token,
		NotBefore: optionalTime(token.NotBefore()),
		ExpiresAt: optionalTime(token.Expires()),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type contextKey int

const resultKey contextKey = iota

// WithResult stores r and its principal in ctx.
func WithResult(ctx context.Context, r Result) context.Context {
	if r.Principal != nil {
		ctx = validator.WithPrincipal(ctx, r.Principal)
	}
	return context.WithValue(ctx, resultKey, r)
}

// ResultFromContext returns the Result stored by the middleware.
func ResultFromContext(ctx context.Context) (Result, bool) {
	r, ok := ctx.Value(resultKey).(Result)
	return r, ok
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*validator.Principal, bool) {
	return validator.PrincipalFromContext(ctx)
}
