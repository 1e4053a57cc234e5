package metrics

import (
	"strings"
	"unicode"
)

// Tokenize splits text into words. A word is a maximal run of letters, digits
// and combining marks, so Vietnamese diacritics stay inside their word.
func Tokenize(text string, lowercase bool) []string {
	if lowercase {
		text = strings.ToLower(text)
	}
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}

func f1(overlap, hypLen, refLen int) float64 {
	if overlap == 0 || hypLen == 0 || refLen == 0 {
		return 0
	}
	precision := float64(overlap) / float64(hypLen)
	recall := float64(overlap) / float64(refLen)
	return 2 * precision * recall / (precision + recall)
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

// RougeN is the F1 of clipped n-gram overlap between ref and hyp.
func RougeN(ref, hyp []string, n int) float64 {
	refGrams, hypGrams := ngrams(ref, n), ngrams(hyp, n)

	refTotal, hypTotal, overlap := 0, 0, 0
	for _, c := range refGrams {
		refTotal += c
	}
	for gram, c := range hypGrams {
		hypTotal += c
		overlap += min(c, refGrams[gram])
	}
	return f1(overlap, hypTotal, refTotal)
}

// RougeL is the F1 of the longest common subsequence of ref and hyp.
func RougeL(ref, hyp []string) float64 {
	return f1(lcs(ref, hyp), len(hyp), len(ref))
}

func lcs(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
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
