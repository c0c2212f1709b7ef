package tenantjwt

import (
	"errors"

	"github.com/auth0/go-tenant-jwt-middleware/tenant"
	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

// Option configures the Handler.
// Returns error for validation failures.
type Option func(*Handler) error

// WithTenantIdentifier sets how requests are mapped to tenants, typically
// a tenant.FirstOf composition or tenant.FromPolicy.
//
// Default: every request belongs to tenant.DefaultTenantID
func WithTenantIdentifier(identifier tenant.Identifier) Option {
	return func(h *Handler) error {
		if identifier == nil {
			return ErrIdentifierNil
		}
		h.identifier = identifier
		return nil
	}
}

// WithTokenHandlers sets the ordered token handlers. The first one that
// can read a token and validates it wins.
//
// Default: a single validator.Validator
func WithTokenHandlers(handlers ...validator.TokenHandler) Option {
	return func(h *Handler) error {
		if len(handlers) == 0 {
			return ErrTokenHandlersEmpty
		}
		for _, th := range handlers {
			if th == nil {
				return ErrTokenHandlerNil
			}
		}
		h.handlers = append([]validator.TokenHandler(nil), handlers...)
		return nil
	}
}

// WithValidationParameters sets the local baseline every request starts
// from. Issuers and keys listed here are accepted in addition to the
// tenant's remote metadata, and are all that is left when the metadata
// cannot be fetched.
//
// Default: validator.DefaultParameters()
func WithValidationParameters(p validator.Parameters) Option {
	return func(h *Handler) error {
		if p.ClockSkew < 0 {
			return ErrNegativeClockSkew
		}
		h.parameters = p.Clone()
		return nil
	}
}

// WithTokenExtractor sets the function to extract the JWT from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(h *Handler) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		h.extractor = e
		return nil
	}
}

// WithEvents installs hooks.
func WithEvents(events Events) Option {
	return func(h *Handler) error {
		h.events = events
		return nil
	}
}

// WithIncludeErrorDetails sets whether challenges describe why a token
// was rejected.
//
// Default: true
func WithIncludeErrorDetails(include bool) Option {
	return func(h *Handler) error {
		h.includeErrorDetails = include
		return nil
	}
}

// WithRealm adds a realm to the WWW-Authenticate header.
func WithRealm(realm string) Option {
	return func(h *Handler) error {
		h.realm = realm
		return nil
	}
}

// WithLogger sets an optional logger for the handler.
//
// The logger interface is compatible with log/slog.Logger and similar loggers.
//
// Example:
//
//	handler, err := tenantjwt.NewHandler(resolver,
//	    tenantjwt.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(h *Handler) error {
		if logger == nil {
			return ErrLoggerNil
		}
		h.logger = logger
		return nil
	}
}

// WithMetrics sets where measurements go.
//
// Default: NoopMetrics
func WithMetrics(m Metrics) Option {
	return func(h *Handler) error {
		if m == nil {
			return ErrMetricsNil
		}
		h.metrics = m
		return nil
	}
}

// WithTracer sets the tracer, e.g. NewOpenTelemetryTracer(otel.Tracer("api")).
//
// Default: NoopTracer
func WithTracer(t Tracer) Option {
	return func(h *Handler) error {
		if t == nil {
			return ErrTracerNil
		}
		h.tracer = t
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrResolverNil        = errors.New("config resolver cannot be nil")
	ErrIdentifierNil      = errors.New("tenant identifier cannot be nil")
	ErrTokenHandlersEmpty = errors.New("token handlers list cannot be empty")
	ErrTokenHandlerNil    = errors.New("token handler cannot be nil")
	ErrNegativeClockSkew  = errors.New("clock skew cannot be negative")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrLoggerNil          = errors.New("logger cannot be nil")
	ErrMetricsNil         = errors.New("metrics cannot be nil")
	ErrTracerNil          = errors.New("tracer cannot be nil")
	ErrHandlerNil         = errors.New("handler cannot be nil")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")
)
