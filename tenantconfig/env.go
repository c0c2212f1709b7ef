package tenantconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// envDelimiter stands in for KeyDelimiter in variable names, since ":" is
// not portable there: Oidc__acme__Authority is Oidc:acme:Authority.
const envDelimiter = "__"

// EnvSource reads variables starting with prefix from the process
// environment and from optional .env files. Process variables win over
// files; the prefix is stripped.
func EnvSource(prefix string, dotenvFiles ...string) (MapSource, error) {
	values := make(map[string]string)

	if len(dotenvFiles) > 0 {
		fromFiles, err := godotenv.Read(dotenvFiles...)
		if err != nil {
			return nil, fmt.Errorf("failed to read env files: %w", err)
		}
		for k, v := range fromFiles {
			values[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			values[k] = v
		}
	}

	out := make(MapSource)
	for k, v := range values {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || rest == "" {
			continue
		}
		out[strings.ToLower(strings.ReplaceAll(rest, envDelimiter, KeyDelimiter))] = v
	}
	return out, nil
}
