package tenantconfig

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/auth0/go-tenant-jwt-middleware/internal/oidc"
	"github.com/auth0/go-tenant-jwt-middleware/jwks"
	"github.com/auth0/go-tenant-jwt-middleware/template"
)

const (
	// SectionPrefix is the root of every tenant section.
	SectionPrefix = "Oidc"
	// TemplateSection is the section used by tenants without their own.
	TemplateSection = "${Template}"
	// DefaultCacheTTL applies when a section has no CacheDelayInSec.
	DefaultCacheTTL = jwks.DefaultTTL
)

// TenantAuthConfig is a tenant's identity provider configuration with
// every template token substituted.
type TenantAuthConfig struct {
	TenantID      string
	Authority     string
	Audience      string
	ClientID      string
	RoleClaimType string
	NameClaimType string
	// TargetUserRolesClaimName is optional and passed through as is.
	TargetUserRolesClaimName string
	CacheTTL                 time.Duration
	// MetadataAddress is the discovery document URL of Authority.
	MetadataAddress string
	// FromTemplate is set when the tenant has no section of its own.
	FromTemplate bool
}

// MetadataCache provides per-authority signing metadata. *jwks.Cache
// implements it.
type MetadataCache interface {
	Get(ctx context.Context, authority string, ttl time.Duration) (*jwks.Metadata, error)
	Refresh(ctx context.Context, authority string, ttl time.Duration) (*jwks.Metadata, error)
}

// Resolver turns tenant ids into TenantAuthConfigs and their metadata.
type Resolver struct {
	source Source
	cache  MetadataCache
}

// NewResolver returns a Resolver reading sections from source.
func NewResolver(source Source, cache MetadataCache) (*Resolver, error) {
	if source == nil {
		return nil, errors.New("configuration source is required but was nil")
	}
	if cache == nil {
		return nil, errors.New("metadata cache is required but was nil")
	}
	return &Resolver{source: source, cache: cache}, nil
}

// Resolve builds the configuration of tenantID. A tenant without its own
// or a template section, or any missing required field, is a *ConfigError.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (*TenantAuthConfig, error) {
	path, section, err := r.section(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if section == nil {
		return nil, &ConfigError{
			TenantID: tenantID,
			Field:    FieldAuthority,
			Section:  SectionPrefix + KeyDelimiter + tenantID,
			Reason:   "is not configured and no " + SectionPrefix + KeyDelimiter + TemplateSection + " section exists",
		}
	}

	opts, err := bindOptions(tenantID, path, section)
	if err != nil {
		return nil, err
	}

	replacer := template.New()
	if err := replacer.StoreTenantID(tenantID); err != nil {
		return nil, err
	}
	clientID := replacer.Replace(opts.ClientID)
	if err := replacer.StoreClientID(clientID); err != nil {
		return nil, err
	}

	cfg := &TenantAuthConfig{
		TenantID:                 tenantID,
		Authority:                replacer.Replace(opts.Authority),
		Audience:                 replacer.Replace(opts.Audience),
		ClientID:                 clientID,
		RoleClaimType:            replacer.Replace(opts.RoleClaimTemplate),
		NameClaimType:            replacer.Replace(opts.NameClaimType),
		TargetUserRolesClaimName: replacer.Replace(opts.TargetUserRolesClaimName),
		CacheTTL:                 DefaultCacheTTL,
		FromTemplate:             path == SectionPrefix+KeyDelimiter+TemplateSection,
	}
	if opts.CacheDelayInSec != nil {
		cfg.CacheTTL = time.Duration(*opts.CacheDelayInSec) * time.Second
	}

	for _, required := range []struct {
		field string
		value string
	}{
		{FieldAuthority, cfg.Authority},
		{FieldClientID, cfg.ClientID},
		{FieldAudience, cfg.Audience},
		{FieldRoleClaimTemplate, cfg.RoleClaimType},
		{FieldNameClaimType, cfg.NameClaimType},
	} {
		if required.value == "" {
			return nil, &ConfigError{TenantID: tenantID, Field: required.field, Section: path}
		}
	}

	u, err := url.Parse(cfg.Authority)
	if err != nil || !u.IsAbs() || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, &ConfigError{
			TenantID: tenantID,
			Field:    FieldAuthority,
			Section:  path,
			Reason:   fmt.Sprintf("must be an absolute http(s) URL, got %q", cfg.Authority),
		}
	}
	cfg.MetadataAddress = oidc.DiscoveryURL(cfg.Authority)

	return cfg, nil
}

// Metadata returns the cached metadata of cfg's authority, fetching it when
// missing or expired.
func (r *Resolver) Metadata(ctx context.Context, cfg *TenantAuthConfig) (*jwks.Metadata, error) {
	return r.cache.Get(ctx, cfg.Authority, cfg.CacheTTL)
}

// RefreshMetadata fetches the metadata of cfg's authority again.
func (r *Resolver) RefreshMetadata(ctx context.Context, cfg *TenantAuthConfig) (*jwks.Metadata, error) {
	return r.cache.Refresh(ctx, cfg.Authority, cfg.CacheTTL)
}

// section returns the tenant's own section, or the template section, or
// nil when neither exists.
func (r *Resolver) section(ctx context.Context, tenantID string) (string, Section, error) {
	for _, name := range []string{tenantID, TemplateSection} {
		path := SectionPrefix + KeyDelimiter + name
		section, ok, err := r.source.Section(ctx, path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read section %s: %w", path, err)
		}
		if ok {
			return path, section, nil
		}
	}
	return "", nil, nil
}
