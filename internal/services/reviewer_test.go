package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTextReview_EmptyInputSkipsModelCall(t *testing.T) {
	gen := &stubGenerator{text: "should never be called"}

	report, err := RunTextReview(context.Background(), gen, "   \n\t ", "Doc.pdf")

	require.NoError(t, err)
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, "Text Review Skipped (Empty Input)", report.DocumentName)
	assert.Empty(t, report.Sections)
	assert.Contains(t, report.OverallConclusion, "skipped")
}

func TestRunTextReview_TransportErrorPropagates(t *testing.T) {
	gen := &stubGenerator{err: errors.New("rpc unavailable")}

	_, err := RunTextReview(context.Background(), gen, "some document text", "Doc.pdf")

	assert.Error(t, err)
}

func TestRunTextReview_BlockedResponseBecomesFallbackReport(t *testing.T) {
	gen := &stubGenerator{text: "BLOCKED: SAFETY"}

	report, err := RunTextReview(context.Background(), gen, "some document text", "Doc.pdf")

	require.NoError(t, err)
	assert.Equal(t, "BLOCKED: SAFETY", report.RawResponse)
	assert.Empty(t, report.Sections)
}

func TestRunMultimodalReview_ParsesFindings(t *testing.T) {
	gen := &stubGenerator{text: reviewReplyJSON}

	report, err := RunMultimodalReview(context.Background(), gen, []byte("%PDF"), "Doc.pdf")

	require.NoError(t, err)
	require.Len(t, report.Sections, 1)
	assert.Equal(t, "Performance Table", report.Sections[0].SectionTitle)
}

func TestCleanExtractedText(t *testing.T) {
	in := "  Header\n\n\nBody line one.\n   \nBody line two.  "
	assert.Equal(t, "Header\nBody line one.\nBody line two.", cleanExtractedText(in))
}

func TestRunTypoAnalysis_RefusalBecomesErrorReport(t *testing.T) {
	gen := &stubGenerator{text: "NO_CONTENT_OR_SAFETY_INFO"}

	report := RunTypoAnalysis(context.Background(), gen, []byte("%PDF"))

	assert.Empty(t, report.MissingPercentDetails)
	assert.Contains(t, report.Error, "NO_CONTENT_OR_SAFETY_INFO")
}

func TestRunTypoAnalysis_ParsesDetails(t *testing.T) {
	gen := &stubGenerator{text: `{"missing_percent_details": [{"page": "4", "context": "1-year return of 8.2", "recommendation": "Append % after 8.2"}]}`}

	report := RunTypoAnalysis(context.Background(), gen, []byte("%PDF"))

	require.Len(t, report.MissingPercentDetails, 1)
	assert.Equal(t, "4", string(report.MissingPercentDetails[0].Page))
	assert.Empty(t, report.Error)
}
