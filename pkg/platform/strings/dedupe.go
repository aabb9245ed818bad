// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// Returns: []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, func(s string) string { return s })
}

// DedupeAndTrimFold is like DedupeAndTrim but compares case-insensitively,
// keeping the casing of the first occurrence. Used for skill lists where
// "Go" and "go" are the same entry but the user's spelling should survive.
//
// Example:
//
//	DedupeAndTrimFold([]string{"  Go ", "react", "go"})
//	// Returns: []string{"Go", "react"}
func DedupeAndTrimFold(values []string) []string {
	return dedupe(values, strings.ToLower)
}

// CapLen returns at most the first max elements of values. A negative
// max, or one at or beyond the slice length, returns the slice unchanged.
func CapLen(values []string, max int) []string {
	if max < 0 || len(values) <= max {
		return values
	}
	return values[:max]
}

// dedupe keeps the first element per key, trimmed, skipping empties.
func dedupe(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		k := key(trimmed)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
