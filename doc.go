/*
Package tenantjwt authenticates bearer tokens for multi-tenant APIs.

Every request is mapped to a tenant, the tenant's OpenID Connect settings
are resolved from configuration and the token is validated against the
signing keys and issuer published by the tenant's authority. Metadata is
cached per authority and refreshed once when a token is signed with a key
the cache does not know yet.

# Quick Start

	source, err := tenantconfig.LoadYAMLFile("tenants.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	fetcher, err := jwks.NewProvider()
	if err != nil {
	    log.Fatal(err)
	}
	cache, err := jwks.NewCache(fetcher)
	if err != nil {
	    log.Fatal(err)
	}
	resolver, err := tenantconfig.NewResolver(source, cache)
	if err != nil {
	    log.Fatal(err)
	}

	handler, err := tenantjwt.NewHandler(resolver,
	    tenantjwt.WithTenantIdentifier(tenant.FirstOf(
	        tenant.ByClaim(""),
	        tenant.ByQueryString(""),
	        tenant.BySubdomain(domain.NewParser()),
	    )),
	)
	if err != nil {
	    log.Fatal(err)
	}

	middleware, err := tenantjwt.New(handler)
	if err != nil {
	    log.Fatal(err)
	}

	http.Handle("/api/", middleware.CheckJWT(apiHandler))

# Accessing the principal

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    principal, ok := tenantjwt.PrincipalFromContext(r.Context())
	    if !ok {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintf(w, "Hello, %s!", principal.Name())
	}

ResultFromContext returns the whole Result, including the tenant id and
the resolved TenantAuthConfig.

# Outcomes

Handler.Authenticate returns one of three outcomes:

  - NoResult: no token was presented
  - Success: the token is valid for the tenant
  - Fail: the token was rejected; Result.Failure says why

An error return is a fault, such as a broken tenant configuration, and
is answered with 500 by the middleware's ErrorHandler. Rejections are
answered with a challenge:

	WWW-Authenticate: Bearer error="invalid_token", error_description="The token expired at '2024-05-01T11:00:00Z'"

# Events

Events lets applications hook into every step. MessageReceived may supply
the token or short-circuit, TokenValidated may reject a valid token,
AuthenticationFailed may turn a rejection into another result, and
Challenge and Forbidden may write their own responses.
*/
package tenantjwt
