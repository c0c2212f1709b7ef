package tenantconfig

import (
	"context"
	"fmt"
	"strings"
)

// KeyDelimiter separates the levels of a configuration key, e.g.
// "Oidc:acme:Authority".
const KeyDelimiter = ":"

// Section is the flattened content of one configuration section. Keys are
// relative to the section and lower-cased.
type Section map[string]string

// Get looks a key up without regard to case.
func (s Section) Get(key string) (string, bool) {
	v, ok := s[strings.ToLower(key)]
	return v, ok
}

// Source is a hierarchical key/value store. Section reports false when
// nothing is stored below path.
type Source interface {
	Section(ctx context.Context, path string) (Section, bool, error)
}

// MapSource holds flat colon-delimited keys in memory.
type MapSource map[string]string

// NewMapSource copies values into a MapSource, normalising key case.
func NewMapSource(values map[string]string) MapSource {
	m := make(MapSource, len(values))
	for k, v := range values {
		m[strings.ToLower(k)] = v
	}
	return m
}

// Section implements Source.
func (m MapSource) Section(_ context.Context, path string) (Section, bool, error) {
	prefix := strings.ToLower(strings.TrimSuffix(path, KeyDelimiter)) + KeyDelimiter

	section := make(Section)
	for k, v := range m {
		if rest, ok := strings.CutPrefix(strings.ToLower(k), prefix); ok && rest != "" {
			section[rest] = v
		}
	}
	return section, len(section) > 0, nil
}

// Layered merges sources. For every key the last source holding it wins,
// so later sources override earlier ones the way environment variables
// override a file.
func Layered(sources ...Source) Source {
	return layered(sources)
}

type layered []Source

func (l layered) Section(ctx context.Context, path string) (Section, bool, error) {
	merged := make(Section)
	found := false
	for i, source := range l {
		section, ok, err := source.Section(ctx, path)
		if err != nil {
			return nil, false, fmt.Errorf("configuration source %d: %w", i, err)
		}
		if !ok {
			continue
		}
		found = true
		for k, v := range section {
			merged[k] = v
		}
	}
	return merged, found, nil
}
