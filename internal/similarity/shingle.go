package similarity

import "strings"

// Shingles returns the set of n-gram shingles over tokens. A token
// stream shorter than n collapses to a single shingle of the whole
// stream, so very small Units still get one comparable shingle.
func Shingles(tokens []string, n int) map[string]bool {
	set := make(map[string]bool)
	if len(tokens) == 0 {
		return set
	}
	if len(tokens) < n {
		set[strings.Join(tokens, " ")] = true
		return set
	}
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], " ")] = true
	}
	return set
}

// Jaccard computes the exact Jaccard similarity of two shingle sets.
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for s := range a {
		if b[s] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
