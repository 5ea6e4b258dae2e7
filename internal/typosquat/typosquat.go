// Package typosquat finds the popular domain closest to a candidate host
// by edit distance, flagging likely mistyped-navigation squats.
package typosquat

import "strings"

// Candidate distances: 0 is an exact match (legitimate), 1..3 is a
// typosquatting candidate, above 3 the domains are unrelated.
const maxCandidateDistance = 3

// Result names the nearest popular domain and how far away it is.
type Result struct {
	Closest  string
	Distance int
}

// IsCandidate reports whether the distance marks a typosquat.
func (r Result) IsCandidate() bool {
	return r.Distance >= 1 && r.Distance <= maxCandidateDistance
}

// Closest computes the minimum Levenshtein distance from label to the
// reference set. Comparison is against each domain's registrable name
// with the TLD stripped ("paypal.com" compares as "paypal"). Equidistant
// references tie-break to the lexicographically smallest domain so the
// result is deterministic.
func Closest(label string, popular []string) Result {
	best := Result{Distance: -1}
	for _, domain := range popular {
		name := domain
		if dot := strings.LastIndexByte(domain, '.'); dot > 0 {
			name = domain[:dot]
		}
		d := Distance(label, name)
		if best.Distance < 0 || d < best.Distance || (d == best.Distance && domain < best.Closest) {
			best = Result{Closest: domain, Distance: d}
		}
	}
	return best
}

// Distance is the Levenshtein edit distance between a and b.
// Two-row dynamic programming keeps allocation linear in len(b).
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
