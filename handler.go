package tenantjwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/auth0/go-tenant-jwt-middleware/jwks"
	"github.com/auth0/go-tenant-jwt-middleware/tenant"
	"github.com/auth0/go-tenant-jwt-middleware/tenantconfig"
	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

// TenantClaimType is added to principals whose token carries no tenant.
const TenantClaimType = tenant.DefaultClaimType

// ErrNoHandlerCouldRead is the failure when no TokenHandler accepts the
// token format.
var ErrNoHandlerCouldRead = errors.New("no token handler can read the token")

// ConfigResolver resolves tenant configuration and its metadata.
// *tenantconfig.Resolver implements it.
type ConfigResolver interface {
	Resolve(ctx context.Context, tenantID string) (*tenantconfig.TenantAuthConfig, error)
	Metadata(ctx context.Context, cfg *tenantconfig.TenantAuthConfig) (*jwks.Metadata, error)
	RefreshMetadata(ctx context.Context, cfg *tenantconfig.TenantAuthConfig) (*jwks.Metadata, error)
}

// Handler authenticates bearer tokens against the configuration of the
// tenant a request belongs to.
type Handler struct {
	resolver   ConfigResolver
	identifier tenant.Identifier
	handlers   []validator.TokenHandler
	parameters validator.Parameters
	extractor  TokenExtractor
	events     Events

	includeErrorDetails bool
	realm               string

	logger  Logger
	metrics Metrics
	tracer  Tracer
}

// NewHandler returns a Handler resolving tenant configuration through
// resolver. Without WithTenantIdentifier every request belongs to the
// default tenant; without WithTokenHandlers the jwx validator is used.
func NewHandler(resolver ConfigResolver, opts ...Option) (*Handler, error) {
	if resolver == nil {
		return nil, ErrResolverNil
	}

	h := &Handler{
		resolver:            resolver,
		parameters:          validator.DefaultParameters(),
		extractor:           AuthHeaderTokenExtractor,
		includeErrorDetails: true,
		logger:              nopLogger{},
		metrics:             NoopMetrics{},
		tracer:              NoopTracer{},
	}

	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if len(h.handlers) == 0 {
		v, err := validator.New()
		if err != nil {
			return nil, err
		}
		h.handlers = []validator.TokenHandler{v}
	}

	return h, nil
}

// Authenticate runs the pipeline for r. Token failures are reported as a
// Fail result; the returned error is reserved for faults such as an
// incomplete tenant configuration, which are never retried.
func (h *Handler) Authenticate(r *http.Request) (Result, error) {
	start := time.Now()
	ctx, span := h.tracer.StartSpan(r.Context(), "tenantjwt.Authenticate")
	defer span.Finish()
	r = r.WithContext(ctx)

	result, err := h.authenticate(r)
	var fromEvent *EventError
	if err != nil && !errors.As(err, &fromEvent) {
		h.logger.Error("authentication fault", "tenant", result.TenantID, "error", err)
		handled, hookErr := h.authenticationFailed(r, result.TenantID, err)
		switch {
		case hookErr != nil:
			err = hookErr
		case handled != nil:
			result, err = *handled, nil
		}
	}

	outcome := result.Outcome.String()
	if err != nil {
		outcome = outcomeError
		span.RecordError(err)
	}
	span.SetTag("tenant.id", result.TenantID)
	span.SetTag("auth.outcome", outcome)
	h.metrics.AuthenticationCompleted(tenantLabel(result), outcome, time.Since(start))

	return result, err
}

// authenticate returns the partial result along with faults so that the
// tenant id is known to the caller.
func (h *Handler) authenticate(r *http.Request) (Result, error) {
	ctx := r.Context()

	var token string
	if h.events.MessageReceived != nil {
		received := &MessageReceivedContext{Request: r}
		if err := h.events.MessageReceived(received); err != nil {
			return Result{}, &EventError{Event: "MessageReceived", Err: err}
		}
		if received.Result != nil {
			return *received.Result, nil
		}
		token = received.Token
	}
	if token == "" {
		var err error
		if token, err = h.extractor(r); err != nil {
			return Result{}, fmt.Errorf("failed to extract token: %w", err)
		}
	}
	if token == "" {
		return NoResultFor(""), nil
	}

	tenantID, err := tenant.Resolve(h.identifier, r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to identify tenant: %w", err)
	}

	cfg, err := h.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return NoResultFor(tenantID), err
	}
	// tenantconfig.Resolver rejects a missing authority; other resolvers may
	// use an empty one to opt a tenant out.
	if cfg.Authority == "" {
		h.logger.Debug("tenant has no authority configured", "tenant", tenantID)
		return NoResultFor(tenantID), nil
	}

	meta, err := h.resolver.Metadata(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Outcome: NoResult, TenantID: tenantID, Config: cfg}, err
		}
		h.logger.Warn("metadata unavailable, validating with local parameters",
			"tenant", tenantID, "authority", cfg.Authority, "error", err)
		h.metrics.MetadataUnavailable(authorityLabel(cfg))
	}

	params := h.merge(cfg, meta)
	if meta == nil && len(params.SigningKeys) == 0 {
		return h.fail(r, tenantID, cfg, err)
	}

	validated, failures := h.validate(ctx, token, params)
	if validated == nil && needsRefresh(failures) {
		validated, failures = h.retryAfterRefresh(ctx, cfg, token, failures)
	}

	if validated == nil {
		if len(failures) == 0 {
			return h.fail(r, tenantID, cfg, ErrNoHandlerCouldRead)
		}
		return h.fail(r, tenantID, cfg, errors.Join(failures...))
	}

	if _, ok := validated.Principal.Claim(TenantClaimType); !ok {
		validated.Principal.SetClaim(TenantClaimType, tenantID)
	}

	if h.events.TokenValidated != nil {
		tv := &TokenValidatedContext{
			Request:   r,
			TenantID:  tenantID,
			Principal: validated.Principal,
			Token:     validated,
		}
		if err := h.events.TokenValidated(tv); err != nil {
			return Result{Outcome: NoResult, TenantID: tenantID, Config: cfg}, &EventError{Event: "TokenValidated", Err: err}
		}
		if tv.Result != nil {
			if tv.Result.Outcome == Fail {
				return h.fail(r, tenantID, cfg, tv.Result.Failure)
			}
			return *tv.Result, nil
		}
	}

	h.logger.Debug("token validated", "tenant", tenantID, "subject", validated.Principal.Subject())
	return successFor(tenantID, cfg, validated), nil
}

// merge builds the request's validation parameters: the local baseline
// with the tenant's audience and claim types, extended by the remote
// issuer and keys.
func (h *Handler) merge(cfg *tenantconfig.TenantAuthConfig, meta *jwks.Metadata) validator.Parameters {
	p := h.parameters.Clone()
	p.ValidAudiences = append(p.ValidAudiences, cfg.Audience)
	p.NameClaimType = cfg.NameClaimType
	p.RoleClaimType = cfg.RoleClaimType
	if meta == nil {
		return p
	}
	return p.Merge(meta.Issuer, meta.SigningKeys)
}

// validate runs every handler that can read token until one succeeds.
func (h *Handler) validate(ctx context.Context, token string, params validator.Parameters) (*validator.ValidatedToken, []error) {
	var failures []error
	for _, th := range h.handlers {
		if !th.CanRead(token) {
			continue
		}
		validated, err := th.ValidateToken(ctx, token, params)
		if err == nil {
			return validated, nil
		}
		failures = append(failures, err)
	}
	return nil, failures
}

func (h *Handler) retryAfterRefresh(
	ctx context.Context,
	cfg *tenantconfig.TenantAuthConfig,
	token string,
	failures []error,
) (*validator.ValidatedToken, []error) {
	h.logger.Info("signing key not found, refreshing metadata", "tenant", cfg.TenantID, "authority", cfg.Authority)

	meta, err := h.resolver.RefreshMetadata(ctx, cfg)
	switch {
	case errors.Is(err, jwks.ErrRefreshThrottled):
		h.logger.Debug("metadata refresh throttled", "authority", cfg.Authority)
		return nil, failures
	case err != nil:
		h.logger.Warn("metadata refresh failed", "authority", cfg.Authority, "error", err)
		return nil, failures
	}

	h.metrics.MetadataRefreshed(authorityLabel(cfg))
	return h.validate(ctx, token, h.merge(cfg, meta))
}

func needsRefresh(failures []error) bool {
	for _, err := range failures {
		if validator.IsSignatureKeyNotFound(err) {
			return true
		}
	}
	return false
}

// fail reports a rejected token through the AuthenticationFailed hook.
func (h *Handler) fail(r *http.Request, tenantID string, cfg *tenantconfig.TenantAuthConfig, failure error) (Result, error) {
	h.logger.Warn("token validation failed", "tenant", tenantID, "error", failure)

	handled, err := h.authenticationFailed(r, tenantID, failure)
	if err != nil {
		return Result{Outcome: NoResult, TenantID: tenantID, Config: cfg}, err
	}
	if handled != nil {
		if handled.Config == nil {
			handled.Config = cfg
		}
		return *handled, nil
	}
	result := FailWith(tenantID, failure)
	result.Config = cfg
	return result, nil
}

func (h *Handler) authenticationFailed(r *http.Request, tenantID string, failure error) (*Result, error) {
	if h.events.AuthenticationFailed == nil {
		return nil, nil
	}
	af := &AuthenticationFailedContext{Request: r, TenantID: tenantID, Err: failure}
	if err := h.events.AuthenticationFailed(af); err != nil {
		return nil, &EventError{Event: "AuthenticationFailed", Err: err}
	}
	return af.Result, nil
}

// Metrics name only tenants with a section of their own; template tenants
// and their authorities share one label.
const (
	templateLabel   = "template"
	unresolvedLabel = "unresolved"
)

func tenantLabel(result Result) string {
	switch {
	case result.Config != nil && !result.Config.FromTemplate:
		return result.TenantID
	case result.Config != nil:
		return templateLabel
	case result.TenantID == "":
		return ""
	default:
		return unresolvedLabel
	}
}

func authorityLabel(cfg *tenantconfig.TenantAuthConfig) string {
	if cfg.FromTemplate {
		return templateLabel
	}
	return cfg.Authority
}
