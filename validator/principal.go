package validator

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Principal is an authenticated identity. Its claims are the verified
// token payload plus any claims added after validation.
type Principal struct {
	NameClaimType string
	RoleClaimType string

	claims map[string]any
}

// NewPrincipal wraps claims. A nil map is allowed.
func NewPrincipal(claims map[string]any, nameClaimType, roleClaimType string) *Principal {
	if claims == nil {
		claims = make(map[string]any)
	}
	if nameClaimType == "" {
		nameClaimType = DefaultNameClaimType
	}
	if roleClaimType == "" {
		roleClaimType = DefaultRoleClaimType
	}
	return &Principal{
		NameClaimType: nameClaimType,
		RoleClaimType: roleClaimType,
		claims:        claims,
	}
}

// Claims returns the underlying claim map.
func (p *Principal) Claims() map[string]any {
	return p.claims
}

// Claim looks up a claim by its literal name first and then as a dotted
// path into nested objects, e.g. "resource_access.app1.roles".
func (p *Principal) Claim(name string) (any, bool) {
	if v, ok := p.claims[name]; ok {
		return v, true
	}
	if !strings.Contains(name, ".") {
		return nil, false
	}

	var current any = p.claims
	for _, part := range strings.Split(name, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// SetClaim adds or replaces a claim.
func (p *Principal) SetClaim(name string, value any) {
	p.claims[name] = value
}

// Values returns all string values of a claim. Arrays are flattened and
// scalars formatted.
func (p *Principal) Values(name string) []string {
	v, ok := p.Claim(name)
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return slices.Clone(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

// FindFirst returns the first value of a claim.
func (p *Principal) FindFirst(name string) (string, bool) {
	values := p.Values(name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Subject returns the sub claim.
func (p *Principal) Subject() string {
	sub, _ := p.FindFirst("sub")
	return sub
}

// Name returns the value of the name claim type.
func (p *Principal) Name() string {
	name, _ := p.FindFirst(p.NameClaimType)
	return name
}

// Roles returns the values of the role claim type.
func (p *Principal) Roles() []string {
	return p.Values(p.RoleClaimType)
}

// IsInRole reports whether the principal holds role.
func (p *Principal) IsInRole(role string) bool {
	return slices.Contains(p.Roles(), role)
}

type contextKey int

const principalKey contextKey = iota

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
