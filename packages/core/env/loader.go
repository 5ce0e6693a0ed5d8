package env

import (
	"os"
	"strings"
)

// MergeVariables merges sources left to right; later sources win.
func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// StringVariables converts string pairs (dotenv, --var flags) into
// resolver variables.
func StringVariables(vars map[string]string) map[string]any {
	result := make(map[string]any, len(vars))
	for k, v := range vars {
		result[k] = v
	}
	return result
}

// ParseAssignments parses KEY=value pairs. Entries without '=' are returned
// in invalid.
func ParseAssignments(pairs []string) (vars map[string]string, invalid []string) {
	vars = make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			invalid = append(invalid, p)
			continue
		}
		vars[k] = v
	}
	return vars, invalid
}

// LoadSystemEnv returns the OS environment entries whose key starts with
// prefix, with the prefix stripped.
func LoadSystemEnv(prefix string) map[string]any {
	result := make(map[string]any)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
		} else if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}
