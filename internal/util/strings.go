package util

import "strings"

// ContainsEither reports whether either string contains the other.
// Returns false if either is empty.
func ContainsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
