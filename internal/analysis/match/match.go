// Package match finds the best approximate catalog match for free text.
package match

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// cutoff is the minimum similarity ratio a candidate must clear.
const cutoff = 0.6

// Closest returns the candidate most similar to query, comparing
// case-insensitively, or false when no candidate reaches the cutoff. The
// returned string is the candidate exactly as supplied. Ties between equal
// ratios resolve to the earlier candidate; callers should rely only on the
// cutoff, not on tie identity.
func Closest(query string, candidates []string) (string, bool) {
	q := runes(strings.ToLower(query))

	var best string
	bestRatio := 0.0
	found := false
	for _, cand := range candidates {
		m := difflib.NewMatcher(runes(strings.ToLower(cand)), q)
		if r := m.Ratio(); r >= cutoff && (!found || r > bestRatio) {
			best, bestRatio, found = cand, r, true
		}
	}
	return best, found
}

// runes splits a string into per-rune elements so the sequence matcher
// compares characters, not lines.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
