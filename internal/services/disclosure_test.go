package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finreview/compliancereviewflow/internal/models"
)

func TestReconcileDisclosures_NoCandidates(t *testing.T) {
	required := []string{
		"Past performance is not indicative of future results.",
		"All investments involve risk, including possible loss of principal.",
	}

	results := ReconcileDisclosures(required, nil)

	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, required[i], r.ExpectedDisclosure)
		assert.Equal(t, 0.0, r.MatchScore)
		assert.Equal(t, models.DisclosureNotPresent, r.Status)
		assert.Empty(t, r.MatchedText)
		assert.Equal(t, "N/A", string(r.Pages))
		assert.NotEmpty(t, r.ID)
	}
}

func TestReconcileDisclosures_ExactAndPartialMatches(t *testing.T) {
	required := []string{
		"All investments involve risk, including possible loss of principal.",
		"Past performance is not indicative of future results.",
	}
	candidates := []models.DisclosureCandidate{
		{Text: "All investments involve risk, including possible loss of principal.", Pages: "2"},
		{Text: "Past performance does not guarantee future results.", Pages: "5"},
	}

	results := ReconcileDisclosures(required, candidates)
	require.Len(t, results, 2)

	assert.Equal(t, models.DisclosurePresent, results[0].Status)
	assert.Equal(t, 100.0, results[0].MatchScore)
	assert.Equal(t, "2", string(results[0].Pages))

	assert.Equal(t, models.DisclosurePartiallyPresent, results[1].Status)
	assert.InDelta(t, 80.77, results[1].MatchScore, 0.05)
	assert.Equal(t, "5", string(results[1].Pages))
}

func TestReconcileDisclosures_TieKeepsFirstCandidate(t *testing.T) {
	required := []string{"Past performance is not indicative of future results."}
	candidates := []models.DisclosureCandidate{
		{Text: "Unrelated marketing copy.", Pages: "1"},
		{Text: "Unrelated marketing copy.", Pages: "9"},
	}

	results := ReconcileDisclosures(required, candidates)

	require.Len(t, results, 1)
	assert.Equal(t, "1", string(results[0].Pages))
}

func TestFilterDisclosureGaps_DropsExactMatches(t *testing.T) {
	results := []models.DisclosureMatch{
		{Status: models.DisclosurePresent},
		{Status: models.DisclosurePartiallyPresent},
		{Status: models.DisclosureNotPresent},
	}

	gaps := FilterDisclosureGaps(results)

	require.Len(t, gaps, 2)
	assert.Equal(t, models.DisclosurePartiallyPresent, gaps[0].Status)
	assert.Equal(t, models.DisclosureNotPresent, gaps[1].Status)
}

func TestAnalyzeDisclosures_ExtractionErrorDegradesToNotPresent(t *testing.T) {
	gen := &stubGenerator{err: errors.New("deadline exceeded")}
	required := []string{"Past performance is not indicative of future results."}

	gaps := AnalyzeDisclosures(context.Background(), gen, required, []byte("%PDF"))

	require.Len(t, gaps, 1)
	assert.Equal(t, models.DisclosureNotPresent, gaps[0].Status)
	assert.Equal(t, 0.0, gaps[0].MatchScore)
}

func TestAnalyzeDisclosures_ParsesCandidates(t *testing.T) {
	gen := &stubGenerator{text: `{"disclosures": [{"text": "Past performance does not guarantee future results.", "pages": "4"}]}`}
	required := []string{"Past performance is not indicative of future results."}

	gaps := AnalyzeDisclosures(context.Background(), gen, required, []byte("%PDF"))

	require.Len(t, gaps, 1)
	assert.Equal(t, models.DisclosurePartiallyPresent, gaps[0].Status)
	assert.Equal(t, "Past performance does not guarantee future results.", gaps[0].MatchedText)
	assert.Equal(t, "4", string(gaps[0].Pages))
}
