// Package strings provides string slice utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  salary ", "age", "salary", "", "  "})
//	// Returns: []string{"salary", "age"}
func DedupeAndTrim(values []string) []string {
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
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// Union concatenates the given slices and dedupes the result, preserving
// first-seen order. Used to merge per-requirement missing fact lists into a
// single result-level list.
func Union(slices ...[]string) []string {
	var merged []string
	for _, s := range slices {
		merged = append(merged, s...)
	}
	return DedupeAndTrim(merged)
}
