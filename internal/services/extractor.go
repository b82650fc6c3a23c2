package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finreview/compliancereviewflow/internal/models"
)

// DecodeJSONObject recovers a JSON object from raw model output. It tries the
// whole string first, then the span between the first '{' and the last '}',
// which handles models that wrap valid JSON in prose or code-fence markers.
func DecodeJSONObject(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model response")
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse embedded JSON object: %w", err)
	}
	return nil
}

// DecodeReviewReport parses model output into a ReviewReport. It never fails:
// unparseable input yields a fallback report that keeps the raw output for
// audit and carries the failure in overall_conclusion.
func DecodeReviewReport(raw, sourceLabel string) models.ReviewReport {
	var report models.ReviewReport
	if err := DecodeJSONObject(raw, &report); err == nil {
		if report.Sections == nil {
			report.Sections = []models.Finding{}
		}
		return report
	}
	return fallbackReport(raw, sourceLabel)
}

func fallbackReport(raw, sourceLabel string) models.ReviewReport {
	return models.ReviewReport{
		DocumentName:      sourceLabel,
		Sections:          []models.Finding{},
		OverallConclusion: fmt.Sprintf("%s could not be completed: the model response was not valid JSON.", sourceLabel),
		RawResponse:       raw,
	}
}
