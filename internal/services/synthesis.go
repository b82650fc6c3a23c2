package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/finreview/compliancereviewflow/internal/gcp"
	"github.com/finreview/compliancereviewflow/internal/models"
)

// Two findings whose combined title and observations score at or above this
// are treated as the same finding.
const duplicateFindingThreshold = 80.0

// RunSynthesisReview merges the text and multimodal reports into one final
// report, delegating the merge to the synthesis model with the PDF as ground
// truth, then enforcing the dedupe, ordering and naming guarantees locally.
// Transport failures from the model are returned to the caller.
func RunSynthesisReview(ctx context.Context, gen gcp.Generator, textReport, multiReport models.ReviewReport, pdfBytes []byte, docName string) (models.ReviewReport, error) {
	report1, err := json.MarshalIndent(textReport, "", "  ")
	if err != nil {
		return models.ReviewReport{}, fmt.Errorf("failed to encode text report: %w", err)
	}
	report2, err := json.MarshalIndent(multiReport, "", "  ")
	if err != nil {
		return models.ReviewReport{}, fmt.Errorf("failed to encode multimodal report: %w", err)
	}

	prompt := strings.NewReplacer(
		"{{GUARDRAILS}}", gcp.FalsePositiveGuardrails,
		"{{DOC_NAME}}", docName,
		"{{REPORT_1}}", string(report1),
		"{{REPORT_2}}", string(report2),
	).Replace(gcp.SynthesisPrompt)

	raw, err := gen.Generate(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: pdfBytes},
		genai.Text(prompt),
	)
	if err != nil {
		return models.ReviewReport{}, fmt.Errorf("synthesis generation failed: %w", err)
	}

	report := DecodeReviewReport(raw, "Synthesis Review")
	return finalizeSynthesisReport(report, docName), nil
}

// finalizeSynthesisReport applies the guarantees the model occasionally
// misses. Fallback reports (RawResponse set) are passed through untouched so
// the raw output stays inspectable.
func finalizeSynthesisReport(report models.ReviewReport, docName string) models.ReviewReport {
	if report.RawResponse != "" {
		return report
	}
	report.DocumentName = docName + " - Synthesized Compliance Report"
	report.Sections = DedupeFindings(report.Sections)
	SortFindingsByPage(report.Sections)
	return report
}

// DedupeFindings collapses near-duplicate findings, keeping for each group
// the record with the most complete citation and recommendations. Order of
// first appearance is preserved.
func DedupeFindings(findings []models.Finding) []models.Finding {
	kept := make([]models.Finding, 0, len(findings))
	for _, f := range findings {
		dup := -1
		for i := range kept {
			if findingSimilarity(kept[i], f) >= duplicateFindingThreshold {
				dup = i
				break
			}
		}
		if dup == -1 {
			kept = append(kept, f)
			continue
		}
		if findingCompleteness(f) > findingCompleteness(kept[dup]) {
			kept[dup] = f
		}
	}
	return kept
}

func findingSimilarity(a, b models.Finding) float64 {
	return SimilarityScore(
		a.SectionTitle+"\n"+a.Observations,
		b.SectionTitle+"\n"+b.Observations,
	)
}

func findingCompleteness(f models.Finding) int {
	return len(strings.TrimSpace(f.RuleCitation)) + len(strings.TrimSpace(f.Recommendations))
}

// SortFindingsByPage orders findings by the string value of page_number.
// This is a plain lexicographic sort, so "10" comes before "2" and "N/A"
// sorts after digits; stored reports have always used this ordering and
// consumers rely on it being stable.
func SortFindingsByPage(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].PageNumber < findings[j].PageNumber
	})
}

// AttachReviewFlags stamps every finding with a fresh ID and reset reviewer
// workflow flags. Model output never controls these fields.
func AttachReviewFlags(findings []models.Finding) {
	for i := range findings {
		findings[i].ID = uuid.NewString()
		findings[i].IsAccepted = false
		findings[i].IsRejected = false
		findings[i].RejectionReason = nil
	}
}
