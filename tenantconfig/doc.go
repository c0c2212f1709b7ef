/*
Package tenantconfig resolves the identity provider configuration of a
tenant.

Configuration is hierarchical and colon-delimited. A tenant's settings live
under Oidc:{tenantId}; tenants without their own section use
Oidc:${Template}, in which ${TenantId} and ${ClientId} are substituted:

	Oidc:
	  ${Template}:
	    Authority: https://idp.example.com/realms/${TenantId}
	    ClientId: api
	    Audience: ${ClientId}
	    RoleClaimTemplate: resource_access.${ClientId}.roles
	    NameClaimType: preferred_username
	    CacheDelayInSec: 300

Sources can be stacked with Layered, e.g. a watched YAML file overridden by
environment variables (Oidc__acme__Authority) and a Redis hash per tenant.
*/
package tenantconfig
