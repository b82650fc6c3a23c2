package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finreview/compliancereviewflow/internal/models"
)

func TestSimilarityScore_IdenticalStrings(t *testing.T) {
	s := "All investments involve risk, including possible loss of principal."
	assert.Equal(t, 100.0, SimilarityScore(s, s))
}

func TestSimilarityScore_ParaphrasedDisclosure(t *testing.T) {
	expected := "Past performance is not indicative of future results."
	found := "Past performance does not guarantee future results."

	score := SimilarityScore(expected, found)
	assert.InDelta(t, 80.77, score, 0.05)
	assert.Equal(t, models.DisclosurePartiallyPresent, ClassifyScore(score))
}

func TestSimilarityScore_Symmetric(t *testing.T) {
	a := "All investments involve risk, including possible loss of principal."
	b := "Investments involve risks, including the possible possible loss of principal."
	assert.Equal(t, SimilarityScore(a, b), SimilarityScore(b, a))
}

func TestSimilarityScore_UnrelatedText(t *testing.T) {
	score := SimilarityScore("Past performance is not indicative of future results.", "Call us today!")
	assert.Less(t, score, 80.0)
}

func TestClassifyScore(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{100, models.DisclosurePresent},
		{99.99, models.DisclosurePartiallyPresent},
		{80, models.DisclosurePartiallyPresent},
		{79.99, models.DisclosureNotPresent},
		{0, models.DisclosureNotPresent},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyScore(tc.score), "score %v", tc.score)
	}
}
