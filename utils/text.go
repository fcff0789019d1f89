package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText lowercases, strips accents (NFKD + combining-mark removal)
// and collapses whitespace. Used by the classifiers and the FAQ matcher so
// "qué" and "que" compare equal.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var punctReplacer = strings.NewReplacer(
	"¿", "", "?", "", "¡", "", "!", "", ".", "", ",", "", ";", "", ":", "", "-", " ",
)

// StripPunct removes the punctuation that commonly decorates Spanish
// questions before matching.
func StripPunct(s string) string {
	return strings.Join(strings.Fields(punctReplacer.Replace(s)), " ")
}

// SequenceRatio is the Ratcliff/Obershelp similarity of two strings:
// 2*M / (len(a)+len(b)) where M is the total length of the recursively
// longest matching blocks. Equivalent to Python's difflib ratio.
func SequenceRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	m := matchingBlocks([]rune(a), []rune(b))
	return 2.0 * float64(m) / float64(len([]rune(a))+len([]rune(b)))
}

func matchingBlocks(a, b []rune) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlocks(a[:ai], b[:bi])
	total += matchingBlocks(a[ai+size:], b[bi+size:])
	return total
}

func longestMatch(a, b []rune) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0
	// j2len[j] = length of the match ending at a[i-1], b[j-1]
	j2len := make(map[int]int)
	for i := 0; i < len(a); i++ {
		next := make(map[int]int)
		for j := 0; j < len(b); j++ {
			if a[i] == b[j] {
				k := j2len[j-1] + 1
				next[j] = k
				if k > bestSize {
					bestA, bestB, bestSize = i-k+1, j-k+1, k
				}
			}
		}
		j2len = next
	}
	return bestA, bestB, bestSize
}

// TokenOverlap is the fraction of tokens in a that equal, contain, or are
// contained in some token of b.
func TokenOverlap(a, b string) float64 {
	at := strings.Fields(a)
	bt := strings.Fields(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0.0
	}
	hits := 0
	for _, x := range at {
		for _, y := range bt {
			if x == y || strings.Contains(y, x) || strings.Contains(x, y) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(at))
}
