package model

import "strings"

// URL patterns are simple globs, matched case-insensitively:
//
//	*x*  contains
//	*x   suffix
//	x*   prefix
//	x    exact
//
// A bare "*" matches everything and is rejected by validation — a policy
// that matches every URL is almost certainly a mistake.

// ValidURLPattern reports whether a pattern is acceptable for storage.
func ValidURLPattern(pattern string) bool {
	trimmed := strings.Trim(pattern, "*")
	if trimmed == "" {
		return false
	}
	// Inner wildcards are not supported; reject so they do not silently
	// match as literals.
	return !strings.Contains(trimmed, "*")
}

// MatchURLPattern reports whether url matches the glob pattern.
func MatchURLPattern(pattern, url string) bool {
	if pattern == "" {
		return false
	}
	lowerURL := strings.ToLower(url)
	lowerPattern := strings.ToLower(pattern)

	switch {
	case strings.HasPrefix(lowerPattern, "*") && strings.HasSuffix(lowerPattern, "*"):
		inner := strings.Trim(lowerPattern, "*")
		return inner != "" && strings.Contains(lowerURL, inner)
	case strings.HasPrefix(lowerPattern, "*"):
		return strings.HasSuffix(lowerURL, lowerPattern[1:])
	case strings.HasSuffix(lowerPattern, "*"):
		return strings.HasPrefix(lowerURL, lowerPattern[:len(lowerPattern)-1])
	default:
		return lowerURL == lowerPattern
	}
}
