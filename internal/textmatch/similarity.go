// Package textmatch scores how well an editor source line matches the text of
// a rendered preview element. Scores drive mapping acceptance, so they are
// normalized to [0,1] and symmetric.
package textmatch

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// CleanLine strips markup tags, collapses whitespace runs to a single space,
// and trims. Comparison always happens on cleaned text so that source markup
// and rendered text can line up.
func CleanLine(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity returns the normalized edit-distance similarity of a and b:
// 1 - distance/len(longer), in runes. Identical strings score 1, and so do
// two empty strings.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	longer := la
	if lb > longer {
		longer = lb
	}
	if longer == 0 {
		return 1
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	dist := dmp.DiffLevenshtein(diffs)

	sim := 1 - float64(dist)/float64(longer)
	if sim < 0 {
		return 0
	}
	return sim
}

// Confidence combines Similarity with a length-ratio penalty, so that a short
// string embedded in a much longer one does not score as a strong match even
// when its characters all overlap.
func Confidence(a, b string) float64 {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	shorter, longer := la, lb
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	return Similarity(a, b) * float64(shorter) / float64(longer)
}
