package services

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/finreview/compliancereviewflow/internal/gcp"
	"github.com/finreview/compliancereviewflow/internal/models"
)

// RunTypoAnalysis scans the PDF for numeric values missing an expected '%'
// symbol. This stage is best-effort: every failure mode, including transport
// errors, degrades to a report carrying an explanatory error field so the
// pipeline can proceed.
func RunTypoAnalysis(ctx context.Context, gen gcp.Generator, pdfBytes []byte) models.TypoReport {
	raw, err := gen.Generate(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: pdfBytes},
		genai.Text(gcp.TypoSystemPrompt),
		genai.Text(gcp.TypoUserPrompt),
	)
	if err != nil {
		slog.Warn("Typo analysis call failed.", "error", err)
		return typoFailure(fmt.Sprintf("Typo analysis failed: %v", err))
	}
	if gcp.IsRefusalMarker(raw) {
		slog.Warn("Typo analysis was blocked.", "marker", raw)
		return typoFailure(fmt.Sprintf("Typo analysis failed: %s", raw))
	}

	var report models.TypoReport
	if err := DecodeJSONObject(raw, &report); err != nil {
		slog.Warn("Typo analysis response was not valid JSON.", "error", err)
		return typoFailure("Typo analysis failed: the model response was not valid JSON.")
	}
	if report.MissingPercentDetails == nil {
		report.MissingPercentDetails = []models.TypoDetail{}
	}
	return report
}

func typoFailure(message string) models.TypoReport {
	return models.TypoReport{
		MissingPercentDetails: []models.TypoDetail{},
		Error:                 message,
	}
}

// AttachTypoFlags stamps every typo detail with a fresh ID and reset reviewer
// workflow flags, mirroring what AttachReviewFlags does for findings.
func AttachTypoFlags(details []models.TypoDetail) {
	for i := range details {
		details[i].ID = uuid.NewString()
		details[i].IsAccepted = false
		details[i].IsRejected = false
		details[i].RejectionReason = nil
	}
}
