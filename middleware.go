package tenantjwt

import (
	"fmt"
	"net/http"
)

// Middleware adapts a Handler to net/http.
type Middleware struct {
	handler             *Handler
	errorHandler        ErrorHandler
	credentialsOptional bool
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger
}

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from JWT validation.
type ExclusionURLHandler func(r *http.Request) bool

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware) error

// New constructs a Middleware around handler.
//
// Example:
//
//	handler, err := tenantjwt.NewHandler(resolver,
//	    tenantjwt.WithTenantIdentifier(identifier),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	middleware, err := tenantjwt.New(handler)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.Handle("/api/", middleware.CheckJWT(apiHandler))
func New(handler *Handler, opts ...MiddlewareOption) (*Middleware, error) {
	if handler == nil {
		return nil, ErrHandlerNil
	}

	m := &Middleware{
		handler:           handler,
		errorHandler:      DefaultErrorHandler,
		validateOnOptions: true,
		logger:            handler.logger,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return m, nil
}

// Handler returns the wrapped Handler.
func (m *Middleware) Handler() *Handler { return m.handler }

// CheckJWT authenticates every request before passing it to next. A
// successful result is stored in the request context; see
// ResultFromContext and PrincipalFromContext.
func (m *Middleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
			m.logger.Debug("skipping JWT validation for excluded URL",
				"method", r.Method,
				"path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		// If we don't validate on OPTIONS and this is OPTIONS
		// then continue onto next without validating.
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			m.logger.Debug("skipping JWT validation for OPTIONS request")
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.handler.Authenticate(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		switch result.Outcome {
		case Success:
			next.ServeHTTP(w, r.WithContext(WithResult(r.Context(), result)))
		case NoResult:
			if m.credentialsOptional {
				m.logger.Debug("no credentials provided, continuing without principal (credentials optional)")
				next.ServeHTTP(w, r)
				return
			}
			m.challenge(w, r, result)
		default:
			m.challenge(w, r, result)
		}
	})
}

// RequireRole wraps next so that only principals in role reach it.
// Requests without a principal are challenged, others are forbidden.
func (m *Middleware) RequireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			m.challenge(w, r, NoResultFor(""))
			return
		}
		if !principal.IsInRole(role) {
			if err := m.handler.Forbid(w, r); err != nil {
				m.errorHandler(w, r, err)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) challenge(w http.ResponseWriter, r *http.Request, result Result) {
	if err := m.handler.Challenge(w, r, result); err != nil {
		m.errorHandler(w, r, err)
	}
}

// WithCredentialsOptional sets whether requests without a token reach the
// next handler unauthenticated.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) MiddlewareOption {
	return func(m *Middleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests should have their JWT validated.
//
// Default: true (OPTIONS requests are validated)
func WithValidateOnOptions(value bool) MiddlewareOption {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called on authentication faults.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithExclusionUrls configures URL patterns to exclude from JWT validation.
// URLs can be full URLs or just paths.
func WithExclusionUrls(exclusions []string) MiddlewareOption {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}
