package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// isYAML reports whether the config path should be read as YAML. Anything
// else is JSON.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// yamlToJSON re-encodes a YAML config as JSON so both formats go through the
// same strict decoder. An empty document becomes an empty object.
func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if v == nil {
		return []byte("{}"), nil
	}
	j, err := json.Marshal(plainYAML(v))
	if err != nil {
		return nil, fmt.Errorf("yaml: re-encode: %w", err)
	}
	return j, nil
}

// plainYAML turns decoded YAML into JSON-marshalable values: map keys become
// strings and explicit !!timestamp values (leave dates, mostly) become
// YYYY-MM-DD or RFC 3339 text.
func plainYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = plainYAML(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = plainYAML(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = plainYAML(x[i])
		}
		return x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	default:
		return in
	}
}
