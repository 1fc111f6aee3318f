package roles

import (
	"sort"
	"strings"

	"github.com/b33n-tech/club-suite-quest/internal/match"
)

// FuzzyCutoff is the minimum similarity between a role name and a header for
// the fuzzy fallback to accept the header.
const FuzzyCutoff = 0.8

// RoleMap is the result of guessing one table's columns: every role from the
// alias set appears as a key; unresolved roles map to "".
type RoleMap map[string]string

// Column returns the resolved header for a role. ok is false when the role is
// unresolved or unknown; callers must handle that case rather than assume
// presence.
func (m RoleMap) Column(role string) (string, bool) {
	col, exists := m[role]
	if !exists || col == "" {
		return "", false
	}
	return col, true
}

// Unresolved lists the roles that could not be mapped, sorted for stable
// reporting.
func (m RoleMap) Unresolved() []string {
	var out []string
	for role, col := range m {
		if col == "" {
			out = append(out, role)
		}
	}
	sort.Strings(out)
	return out
}

// Guess maps each role in aliases onto one of headers, or leaves it
// unresolved. It never fails.
//
// Per role, independently:
//  1. each alias is tested for case-insensitive equality against the
//     headers, in alias order; first hit wins,
//  2. failing that, one fuzzy fallback compares the role name itself against
//     every header (case-insensitive); the best header wins if its ratio
//     clears FuzzyCutoff, ties broken by header order.
func Guess(headers []string, aliases Aliases) RoleMap {
	lowered := make([]string, len(headers))
	byLower := make(map[string]string, len(headers))
	for i, h := range headers {
		l := strings.ToLower(h)
		lowered[i] = l
		if _, dup := byLower[l]; !dup {
			// First occurrence wins for case-insensitively duplicate headers.
			byLower[l] = h
		}
	}

	out := make(RoleMap, len(aliases))
	for role, candidates := range aliases {
		out[role] = guessOne(role, candidates, headers, lowered, byLower)
	}
	return out
}

func guessOne(role string, candidates []string, headers, lowered []string, byLower map[string]string) string {
	for _, cand := range candidates {
		if h, ok := byLower[strings.ToLower(cand)]; ok {
			return h
		}
	}

	// Fuzzy fallback: role name vs headers. Strictly-better keeps the first
	// of equally scored headers, which makes ties deterministic by source
	// column order.
	best := -1
	bestScore := 0.0
	roleLower := strings.ToLower(role)
	for i, l := range lowered {
		if s := match.Ratio(roleLower, l); s > bestScore {
			bestScore = s
			best = i
		}
	}
	if best >= 0 && bestScore >= FuzzyCutoff {
		return headers[best]
	}
	return ""
}
