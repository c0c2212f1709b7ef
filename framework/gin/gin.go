// Package jwtgin adapts tenantjwt to Gin.
package jwtgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	tenantjwt "github.com/auth0/go-tenant-jwt-middleware"
	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

// DefaultPrincipalKey is the gin.Context key of the principal.
const DefaultPrincipalKey = "principal"

var (
	ErrMissingPrincipal = errors.New("no principal found in context")
	ErrInvalidPrincipal = errors.New("invalid principal type")
)

type config struct {
	contextKey string
}

// Middleware authenticates with m. Requests that m rejects are aborted
// after m wrote the response; authenticated requests carry the principal
// under the configured key and in the request context.
func Middleware(m *tenantjwt.Middleware, opts ...Option) gin.HandlerFunc {
	cfg := &config{contextKey: DefaultPrincipalKey}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		reached := false
		var next http.HandlerFunc = func(_ http.ResponseWriter, r *http.Request) {
			reached = true
			c.Request = r
			if principal, ok := tenantjwt.PrincipalFromContext(r.Context()); ok {
				c.Set(cfg.contextKey, principal)
			}
			c.Next()
		}

		m.CheckJWT(next).ServeHTTP(c.Writer, c.Request)

		if !reached {
			c.Abort()
		}
	}
}

// RequireRole aborts requests whose principal lacks role, answering the
// way m does.
func RequireRole(m *tenantjwt.Middleware, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		reached := false
		m.RequireRole(role, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			reached = true
		})).ServeHTTP(c.Writer, c.Request)

		if !reached {
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the principal stored by Middleware.
func GetPrincipal(c *gin.Context, contextKey string) (*validator.Principal, error) {
	if contextKey == "" {
		contextKey = DefaultPrincipalKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingPrincipal
	}

	principal, ok := value.(*validator.Principal)
	if !ok {
		return nil, ErrInvalidPrincipal
	}
	return principal, nil
}
