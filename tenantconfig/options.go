package tenantconfig

import (
	"strconv"
	"strings"
)

// Field names of an Oidc section.
const (
	FieldAuthority                = "Authority"
	FieldClientID                 = "ClientId"
	FieldAudience                 = "Audience"
	FieldRoleClaimTemplate        = "RoleClaimTemplate"
	FieldNameClaimType            = "NameClaimType"
	FieldCacheDelayInSec          = "CacheDelayInSec"
	FieldTargetUserRolesClaimName = "TargetUserRolesClaimName"
)

// Options is an Oidc section before template substitution.
type Options struct {
	Authority         string
	ClientID          string
	Audience          string
	RoleClaimTemplate string
	NameClaimType     string
	// CacheDelayInSec is nil when the section does not set it.
	CacheDelayInSec          *int
	TargetUserRolesClaimName string
}

// bindOptions decodes section. Only a malformed CacheDelayInSec fails here;
// required fields are checked after substitution.
func bindOptions(tenantID, path string, section Section) (Options, error) {
	get := func(field string) string {
		v, _ := section.Get(field)
		return strings.TrimSpace(v)
	}

	opts := Options{
		Authority:                get(FieldAuthority),
		ClientID:                 get(FieldClientID),
		Audience:                 get(FieldAudience),
		RoleClaimTemplate:        get(FieldRoleClaimTemplate),
		NameClaimType:            get(FieldNameClaimType),
		TargetUserRolesClaimName: get(FieldTargetUserRolesClaimName),
	}

	if raw := get(FieldCacheDelayInSec); raw != "" {
		delay, err := strconv.Atoi(raw)
		if err != nil || delay < 0 {
			return Options{}, &ConfigError{
				TenantID: tenantID,
				Field:    FieldCacheDelayInSec,
				Section:  path,
				Reason:   "must be a non-negative integer, got " + strconv.Quote(raw),
			}
		}
		opts.CacheDelayInSec = &delay
	}

	return opts, nil
}
