// Package urlutil resolves relative call paths against service base URLs.
package urlutil

import "strings"

// Join concatenates a base URL and a relative path, collapsing duplicate
// slashes while preserving the scheme separator. A rel that already carries
// a scheme is returned unchanged.
func Join(base, rel string) string {
	if strings.Contains(rel, "://") {
		return rel
	}
	if base == "" {
		return rel
	}
	joined := base + "/" + rel
	scheme := ""
	if i := strings.Index(joined, "://"); i >= 0 {
		scheme = joined[:i+3]
		joined = joined[i+3:]
	}
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	return scheme + joined
}
