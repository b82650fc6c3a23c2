package services

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/finreview/compliancereviewflow/internal/models"
)

// SimilarityScore returns a sequence-alignment similarity between two strings
// on a 0..100 scale. The metric is the character-level Ratcliff/Obershelp
// ratio: tolerant of the insertions and reorderings typical of extraction
// noise, while still requiring substantial contiguous overlap. Identical
// strings score exactly 100; the score is symmetric in its arguments.
func SimilarityScore(a, b string) float64 {
	matcher := difflib.NewMatcher(splitChars(a), splitChars(b))
	return matcher.Ratio() * 100
}

func splitChars(s string) []string {
	return strings.Split(s, "")
}

// ClassifyScore maps a similarity score to the tri-state presence verdict.
// The 100 and 80 cutoffs are fixed business rules, not tuning knobs.
func ClassifyScore(score float64) string {
	switch {
	case score == 100:
		return models.DisclosurePresent
	case score >= 80:
		return models.DisclosurePartiallyPresent
	default:
		return models.DisclosureNotPresent
	}
}
