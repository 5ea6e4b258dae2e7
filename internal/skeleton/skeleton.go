// Package skeleton normalizes host labels to their ASCII skeleton form so
// homograph candidates can be compared against popular domains.
package skeleton

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Skeleton maps every character of s to its canonical ASCII form.
// Total over any input: confusable code points map through the table,
// other non-ASCII falls back to NFKD decomposition with combining marks
// stripped, and anything still unmapped passes through unchanged.
// For all-ASCII input Skeleton is the identity function.
func Skeleton(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
			continue
		}
		if mapped, ok := confusables[r]; ok {
			b.WriteString(mapped)
			continue
		}
		b.WriteString(decompose(r))
	}
	return b.String()
}

// decompose strips diacritics via NFKD, keeping the base character when
// it lands in ASCII. Unmapped characters come back unchanged.
func decompose(r rune) string {
	decomposed := norm.NFKD.String(string(r))
	var b strings.Builder
	for _, d := range decomposed {
		if unicode.Is(unicode.Mn, d) {
			continue
		}
		b.WriteRune(d)
	}
	if out := b.String(); out != "" {
		return out
	}
	return string(r)
}

// Match describes a detected homograph impersonation.
type Match struct {
	Domain      string // the popular domain being imitated
	Confusables []rune // the deceptive code points used in the host
}

// DetectHomograph reports whether host's skeleton equals a popular domain
// while the host itself differs from it. The returned confusable runes
// feed alert diagnostics.
func DetectHomograph(host string, popular []string) (Match, bool) {
	skel := Skeleton(host)
	if skel == host {
		return Match{}, false
	}
	for _, domain := range popular {
		if skel == domain {
			return Match{Domain: domain, Confusables: confusableRunes(host)}, true
		}
	}
	return Match{}, false
}

// HasConfusables reports whether any character of s is in the table.
func HasConfusables(s string) bool {
	for _, r := range s {
		if _, ok := confusables[r]; ok {
			return true
		}
	}
	return false
}

func confusableRunes(s string) []rune {
	var out []rune
	for _, r := range s {
		if _, ok := confusables[r]; ok {
			out = append(out, r)
		}
	}
	return out
}
