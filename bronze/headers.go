// bronze/headers.go
package bronze

import (
	"fmt"
	"regexp"
	"strings"
)

var headerSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// NormalizeHeader lowercases a raw sheet header and collapses every run of
// non-alphanumeric characters to a single underscore. Idempotent:
// NormalizeHeader(NormalizeHeader(s)) == NormalizeHeader(s).
func NormalizeHeader(s string) string {
	c := strings.ToLower(strings.TrimSpace(s))
	c = headerSanitizer.ReplaceAllString(c, "_")
	return strings.Trim(c, "_")
}

// NormalizeHeaders applies NormalizeHeader to every header in order.
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = NormalizeHeader(h)
	}
	return out
}

// DedupeHeaders disambiguates repeated column names deterministically by
// appending an incrementing suffix per duplicate occurrence:
// [x, x, x] becomes [x, x_1, x_2].
func DedupeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]int)
	for i, h := range headers {
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			out[i] = fmt.Sprintf("%s_%d", h, n+1)
		} else {
			seen[h] = 0
			out[i] = h
		}
	}
	return out
}
