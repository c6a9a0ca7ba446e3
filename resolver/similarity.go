package resolver

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Similarity scores two strings from 0 to 100 as 100·(n − d)/n, where n is
// the summed rune length and d the insertion/deletion distance between the
// lower-cased, trimmed inputs. A substitution counts as two edits, so a
// suffix glued to a name ("ecosprin-75") costs less than a wrong letter.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(strings.TrimSpace(a)))
	rb := []rune(strings.ToLower(strings.TrimSpace(b)))
	n := len(ra) + len(rb)
	if n == 0 {
		return 100
	}
	// n − d equals twice the longest common subsequence.
	return 100 * float64(2*lcsLength(ra, rb)) / float64(n)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// fold strips diacritics so "Paracétamol" and "Paracetamol" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
