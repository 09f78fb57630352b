// Package similarity scores how close two texts are.
package similarity

import "github.com/agnivade/levenshtein"

// Ratio returns a normalized similarity in [0, 1] where 1 means identical.
//
// It is the insert/delete similarity 2*LCS/(len(a)+len(b)) computed over runes,
// the same normalization difflib-style and python-Levenshtein ratios use.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return float64(2*lcsLength(ra, rb)) / float64(total)
}

// Distance returns the minimum number of single-character insertions,
// deletions and substitutions turning a into b.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	return levenshtein.ComputeDistance(a, b)
}

// Compare returns both Ratio and Distance.
func Compare(a, b string) (ratio float64, dist int) {
	return Ratio(a, b), Distance(a, b)
}

// lcsLength returns the length of the longest common subsequence, using two rows.
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
