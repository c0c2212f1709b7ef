package jwtecho

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tenantjwt "github.com/auth0/go-tenant-jwt-middleware"
	"github.com/auth0/go-tenant-jwt-middleware/internal/jwttest"
	"github.com/auth0/go-tenant-jwt-middleware/jwks"
	"github.com/auth0/go-tenant-jwt-middleware/tenant"
	"github.com/auth0/go-tenant-jwt-middleware/tenantconfig"
)

func Test_Middleware(t *testing.T) {
	key := jwttest.NewKey(t, "key-1")
	provider := jwttest.NewProvider(t, key)
	source := tenantconfig.NewMapSource(map[string]string{
		"Oidc:acme:Authority":         provider.URL,
		"Oidc:acme:ClientId":          "api",
		"Oidc:acme:Audience":          "${ClientId}",
		"Oidc:acme:RoleClaimTemplate": "roles",
		"Oidc:acme:NameClaimType":     "preferred_username",
	})

	fetcher, err := jwks.NewProvider()
	require.NoError(t, err)
	cache, err := jwks.NewCache(fetcher)
	require.NoError(t, err)
	resolver, err := tenantconfig.NewResolver(source, cache)
	require.NoError(t, err)
	handler, err := tenantjwt.NewHandler(resolver, tenantjwt.WithTenantIdentifier(tenant.ByQueryString("")))
	require.NoError(t, err)
	m, err := tenantjwt.New(handler)
	require.NoError(t, err)

	claims := jwttest.Claims(provider.Issuer(), "api")
	claims["preferred_username"] = "alice"
	claims["roles"] = []string{"reader"}
	token := key.Sign(t, claims)

	e := echo.New()
	e.Use(Middleware(m))
	e.GET("/me", func(c echo.Context) error {
		principal, ok := GetPrincipal(c, "")
		if !ok {
			return c.String(http.StatusInternalServerError, "no principal")
		}
		return c.String(http.StatusOK, principal.Name())
	})
	e.GET("/reader", func(c echo.Context) error {
		return c.String(http.StatusOK, "reader")
	}, RequireRole(m, "reader"))
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, "admin")
	}, RequireRole(m, "admin"))

	testCases := []struct {
		name           string
		path           string
		token          string
		wantStatusCode int
		wantBody       string
	}{
		{name: "It passes an authenticated request on", path: "/me", token: token, wantStatusCode: http.StatusOK, wantBody: "alice"},
		{name: "It challenges a request without token", path: "/me", wantStatusCode: http.StatusUnauthorized},
		{name: "It passes principals in the role", path: "/reader", token: token, wantStatusCode: http.StatusOK, wantBody: "reader"},
		{name: "It forbids principals without the role", path: "/admin", token: token, wantStatusCode: http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, testCase.path+"?Tenant=acme", nil)
			if testCase.token != "" {
				r.Header.Set("Authorization", "Bearer "+testCase.token)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			assert.Equal(t, testCase.wantStatusCode, w.Code)
			if testCase.wantBody != "" {
				assert.Equal(t, testCase.wantBody, w.Body.String())
			}
		})
	}
}
