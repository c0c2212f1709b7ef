/*
Package oidc fetches the OpenID Connect discovery document of an authority:

	GET {authority}/.well-known/openid-configuration

Only the issuer and jwks_uri fields are decoded. Both are required.

This package implements the parts of OpenID Connect Discovery 1.0
(https://openid.net/specs/openid-connect-discovery-1_0.html) needed to
locate an authority's signing keys.
*/
package oidc
