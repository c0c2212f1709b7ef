package tenantconfig

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a YAML document, or a JSON one such as appsettings.json,
// and flattens it into colon-delimited keys.
func LoadYAML(r io.Reader) (MapSource, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	out := make(MapSource)
	flatten(out, "", doc)
	return out, nil
}

// LoadYAMLFile is LoadYAML for a file on disk.
func LoadYAMLFile(path string) (MapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func flatten(out MapSource, prefix string, value any) {
	join := func(key string) string {
		if prefix == "" {
			return strings.ToLower(key)
		}
		return prefix + KeyDelimiter + strings.ToLower(key)
	}

	switch v := value.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(out, join(k), child)
		}
	case map[any]any:
		for k, child := range v {
			flatten(out, join(fmt.Sprint(k)), child)
		}
	case []any:
		for i, child := range v {
			flatten(out, join(strconv.Itoa(i)), child)
		}
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	default:
		out[prefix] = fmt.Sprint(v)
	}
}
