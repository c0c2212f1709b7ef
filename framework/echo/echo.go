// Package jwtecho adapts tenantjwt to Echo.
package jwtecho

import (
	"net/http"

	"github.com/labstack/echo/v4"

	tenantjwt "github.com/auth0/go-tenant-jwt-middleware"
	"github.com/auth0/go-tenant-jwt-middleware/validator"
)

// DefaultPrincipalKey is the echo.Context key of the principal.
var DefaultPrincipalKey = "principal"

type config struct {
	contextKey string
}

// Middleware authenticates with m. The response of rejected requests is
// written by m and next is not called.
func Middleware(m *tenantjwt.Middleware, opts ...Option) echo.MiddlewareFunc {
	cfg := &config{contextKey: DefaultPrincipalKey}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			var handler http.HandlerFunc = func(_ http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				if principal, ok := tenantjwt.PrincipalFromContext(r.Context()); ok {
					c.Set(cfg.contextKey, principal)
				}
				nextErr = next(c)
			}

			m.CheckJWT(handler).ServeHTTP(c.Response(), c.Request())
			return nextErr
		}
	}
}

// RequireRole stops requests whose principal lacks role.
func RequireRole(m *tenantjwt.Middleware, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			m.RequireRole(role, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				nextErr = next(c)
			})).ServeHTTP(c.Response(), c.Request())
			return nextErr
		}
	}
}

// GetPrincipal extracts the principal from the Echo context.
func GetPrincipal(c echo.Context, contextKey string) (*validator.Principal, bool) {
	if contextKey == "" {
		contextKey = DefaultPrincipalKey
	}
	principal, ok := c.Get(contextKey).(*validator.Principal)
	return principal, ok
}
