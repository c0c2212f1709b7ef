package tenantconfig

import (
	"errors"
	"fmt"
)

// ErrConfig is matched by every ConfigError.
var ErrConfig = errors.New("invalid tenant configuration")

// ConfigError reports a tenant configuration that cannot be used to
// authenticate. It is a server fault, not a token failure.
type ConfigError struct {
	TenantID string
	Field    string
	// Section is the configuration path the values came from.
	Section string
	// Reason is empty when the field is missing.
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("tenant %q: required field %s is missing in section %s", e.TenantID, e.Field, e.Section)
	}
	return fmt.Sprintf("tenant %q: field %s in section %s %s", e.TenantID, e.Field, e.Section, e.Reason)
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
