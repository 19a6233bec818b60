package utils

import (
	"fmt"
	"strings"
)

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
func ParseCSV(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParsePairs parses "key=value,key=value" lists. Keys are lower-cased and
// must be unique.
func ParsePairs(s string) (map[string]string, []string, error) {
	pairs := make(map[string]string)
	var order []string
	for _, item := range ParseCSV(s) {
		key, value, ok := strings.Cut(item, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, nil, fmt.Errorf("malformed pair %q", item)
		}
		if _, dup := pairs[key]; dup {
			return nil, nil, fmt.Errorf("duplicate key %q", key)
		}
		pairs[key] = value
		order = append(order, key)
	}
	return pairs, order, nil
}
