package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finreview/compliancereviewflow/internal/models"
)

const reviewReplyJSON = `{"document_name": "Doc (Text Review)", "sections": [
	{"section_title": "Performance Table", "page_number": "2", "observations": "Missing net-of-fees figure.", "rule_citation": "SEC Marketing Rule 206(4)-1(d)(1)", "recommendations": "Add net-of-fees performance.", "category": "Performance Presentation"}
]}`

func writeTempPDF(t *testing.T) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "review-*.pdf")
	require.NoError(t, err)
	_, err = tmp.WriteString("%PDF-1.4 fake content")
	require.NoError(t, err)
	require.NoError(t, tmp.Close())
	return tmp.Name()
}

func newTestPipeline(store *memoryStore, registry *stubRegistry, notifier *recordingNotifier, synthGen *stubGenerator) *PipelineFunction {
	return &PipelineFunction{
		reviewGen:     &stubGenerator{text: reviewReplyJSON},
		synthesisGen:  synthGen,
		typoGen:       &stubGenerator{text: `{"missing_percent_details": []}`},
		disclosureGen: &stubGenerator{text: `{"disclosures": []}`},
		store:         store,
		versions:      registry,
		artifacts:     &stubArtifacts{},
		disclosures:   &stubDisclosures{refs: []string{"Past performance is not indicative of future results."}},
		notifier:      notifier,
		extractText:   func([]byte) (string, error) { return "extracted document text", nil },
	}
}

func TestPipelineProcess_HappyPath(t *testing.T) {
	store := &memoryStore{}
	registry := &stubRegistry{version: &models.DocumentVersion{OriginalFilename: "Q3 Brochure.pdf"}}
	notifier := &recordingNotifier{}
	synthGen := &stubGenerator{text: reviewReplyJSON}
	pipeline := newTestPipeline(store, registry, notifier, synthGen)

	localPath := writeTempPDF(t)
	res, err := pipeline.Process(context.Background(), &models.PipelineRequest{
		VersionID: "v1", LocalPath: localPath,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, res.Status)

	doc := store.fields["v1"]
	require.NotNil(t, doc)
	assert.Equal(t, models.StatusDone, doc["status"])
	assert.Contains(t, doc, "text_review")
	assert.Contains(t, doc, "multimodal_review")
	assert.Contains(t, doc, "synthesis_review")
	assert.Contains(t, doc, "typo_analysis")
	assert.Contains(t, doc, "disclosure_analysis")
	assert.NotContains(t, doc, "error_message")

	synth := doc["synthesis_review"].(models.ReviewReport)
	assert.Equal(t, "Q3 Brochure.pdf - Synthesized Compliance Report", synth.DocumentName)
	require.Len(t, synth.Sections, 1)
	assert.NotEmpty(t, synth.Sections[0].ID)
	assert.False(t, synth.Sections[0].IsAccepted)

	// The required disclosure was not found, so it must surface as a gap.
	gaps := doc["disclosure_analysis"].([]models.DisclosureMatch)
	require.Len(t, gaps, 1)
	assert.Equal(t, models.DisclosureNotPresent, gaps[0].Status)

	assert.Equal(t, []string{models.VersionStatusReviewCompleted}, registry.statuses)
	assert.Equal(t, []string{"v1:done"}, notifier.events)

	_, statErr := os.Stat(localPath)
	assert.True(t, os.IsNotExist(statErr), "local PDF should be removed")
}

func TestPipelineProcess_SynthesisFailureMarksRunFailed(t *testing.T) {
	store := &memoryStore{}
	registry := &stubRegistry{version: &models.DocumentVersion{OriginalFilename: "Q3 Brochure.pdf"}}
	notifier := &recordingNotifier{}
	synthGen := &stubGenerator{err: assert.AnError}
	pipeline := newTestPipeline(store, registry, notifier, synthGen)

	localPath := writeTempPDF(t)
	_, err := pipeline.Process(context.Background(), &models.PipelineRequest{
		VersionID: "v1", LocalPath: localPath,
	})
	require.Error(t, err)

	doc := store.fields["v1"]
	require.NotNil(t, doc)
	assert.Equal(t, models.StatusFailed, doc["status"])
	assert.Contains(t, doc["error_message"], "synthesis review failed")

	// Earlier stage results stay durable alongside the failure.
	assert.Contains(t, doc, "text_review")
	assert.Contains(t, doc, "multimodal_review")
	assert.NotContains(t, doc, "synthesis_review")

	assert.Equal(t, []string{models.VersionStatusFailed}, registry.statuses)
	assert.Equal(t, []string{"v1:failed"}, notifier.events)

	_, statErr := os.Stat(localPath)
	assert.True(t, os.IsNotExist(statErr), "local PDF should be removed on failure too")
}

func TestPipelineProcess_TypoFailureDoesNotFailRun(t *testing.T) {
	store := &memoryStore{}
	registry := &stubRegistry{version: &models.DocumentVersion{OriginalFilename: "Doc.pdf"}}
	notifier := &recordingNotifier{}
	pipeline := newTestPipeline(store, registry, notifier, &stubGenerator{text: reviewReplyJSON})
	pipeline.typoGen = &stubGenerator{err: assert.AnError}

	res, err := pipeline.Process(context.Background(), &models.PipelineRequest{
		VersionID: "v1", LocalPath: writeTempPDF(t),
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, res.Status)

	typo := store.fields["v1"]["typo_analysis"].(models.TypoReport)
	assert.NotEmpty(t, typo.Error)
	assert.Empty(t, typo.MissingPercentDetails)
}

func TestPipelineProcess_MissingVersionID(t *testing.T) {
	pipeline := &PipelineFunction{}
	_, err := pipeline.Process(context.Background(), &models.PipelineRequest{})
	assert.Error(t, err)
}

func TestPipelineProcess_DisclosureLibraryFailureIsFatal(t *testing.T) {
	store := &memoryStore{}
	registry := &stubRegistry{version: &models.DocumentVersion{OriginalFilename: "Doc.pdf"}}
	notifier := &recordingNotifier{}
	pipeline := newTestPipeline(store, registry, notifier, &stubGenerator{text: reviewReplyJSON})
	pipeline.disclosures = &stubDisclosures{err: assert.AnError}

	_, err := pipeline.Process(context.Background(), &models.PipelineRequest{
		VersionID: "v1", LocalPath: writeTempPDF(t),
	})

	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, store.fields["v1"]["status"])
	assert.Contains(t, store.fields["v1"]["error_message"], "disclosure library")
}
