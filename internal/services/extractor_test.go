package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONObject_CleanJSON(t *testing.T) {
	var out map[string]any
	err := DecodeJSONObject(`{"document_name": "Fund Fact Sheet", "sections": []}`, &out)

	require.NoError(t, err)
	assert.Equal(t, "Fund Fact Sheet", out["document_name"])
}

func TestDecodeJSONObject_FencedJSON(t *testing.T) {
	raw := "Here is the report:\n```json\n{\"document_name\": \"Q3 Brochure\"}\n```\nLet me know if you need anything else."

	var out map[string]any
	err := DecodeJSONObject(raw, &out)

	require.NoError(t, err)
	assert.Equal(t, "Q3 Brochure", out["document_name"])
}

func TestDecodeJSONObject_NoObject(t *testing.T) {
	var out map[string]any
	err := DecodeJSONObject("I cannot review this document.", &out)
	assert.Error(t, err)
}

func TestDecodeReviewReport_FallbackKeepsRawOutput(t *testing.T) {
	raw := "The document looks mostly fine { but this is not JSON"
	report := DecodeReviewReport(raw, "Text Review")

	assert.Equal(t, "Text Review", report.DocumentName)
	assert.Empty(t, report.Sections)
	assert.NotNil(t, report.Sections)
	assert.Equal(t, raw, report.RawResponse)
	assert.Contains(t, report.OverallConclusion, "Text Review")
}

func TestDecodeReviewReport_NumericPageNumber(t *testing.T) {
	raw := `{"document_name": "Doc", "sections": [{"section_title": "Fees", "page_number": 3, "observations": "Fee table lacks context.", "rule_citation": "SEC Marketing Rule 206(4)-1", "recommendations": "Add the required context.", "category": "Missing Disclosure"}]}`

	report := DecodeReviewReport(raw, "Text Review")

	require.Len(t, report.Sections, 1)
	assert.Equal(t, "3", string(report.Sections[0].PageNumber))
	assert.Empty(t, report.RawResponse)
}
