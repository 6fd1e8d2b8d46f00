// gold/columns.go

// Package gold builds the dimensional model: shared dimension tables with
// deterministic deduplication, and one fact table per cleaned dataset with
// canonical foreign keys and lineage stamps.
package gold

import "strings"

// A Resolver is one strategy for locating a column within a table's column
// set. Resolvers are tried strictly in the order given to Resolve, so the
// fallback order is explicit rather than buried in conditional chains.
type Resolver func(cols []string) (string, bool)

// Resolve runs each strategy in turn and returns the first hit.
func Resolve(cols []string, strategies ...Resolver) (string, bool) {
	for _, strategy := range strategies {
		if col, ok := strategy(cols); ok {
			return col, true
		}
	}
	return "", false
}

// Exact matches the first column equal to any candidate, candidates ranked
// first.
func Exact(candidates ...string) Resolver {
	return func(cols []string) (string, bool) {
		for _, candidate := range candidates {
			for _, col := range cols {
				if col == candidate {
					return col, true
				}
			}
		}
		return "", false
	}
}

// Substrings matches the first column containing every required fragment
// and none of the excluded ones.
func Substrings(required []string, excluded []string) Resolver {
	return func(cols []string) (string, bool) {
		for _, col := range cols {
			if containsAll(col, required) && !containsAny(col, excluded) {
				return col, true
			}
		}
		return "", false
	}
}

// AnySubstring matches the first column containing the must fragment plus
// at least one of the anyOf fragments, and none of the excluded ones.
func AnySubstring(must string, anyOf []string, excluded []string) Resolver {
	return func(cols []string) (string, bool) {
		for _, col := range cols {
			if !strings.Contains(col, must) {
				continue
			}
			if !containsAny(col, anyOf) || containsAny(col, excluded) {
				continue
			}
			return col, true
		}
		return "", false
	}
}

// PrefixSuffix matches the first column with the given prefix and suffix,
// the shape of the ONS geography lookup headers (lsoa21cd, lad23nm, ...).
func PrefixSuffix(prefix, suffix string) Resolver {
	return func(cols []string) (string, bool) {
		for _, col := range cols {
			if strings.HasPrefix(col, prefix) && strings.HasSuffix(col, suffix) {
				return col, true
			}
		}
		return "", false
	}
}

func containsAll(s string, fragments []string) bool {
	for _, fragment := range fragments {
		if !strings.Contains(s, fragment) {
			return false
		}
	}
	return true
}

func containsAny(s string, fragments []string) bool {
	for _, fragment := range fragments {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}
