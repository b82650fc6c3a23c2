package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/ledongthuc/pdf"

	"github.com/finreview/compliancereviewflow/internal/gcp"
	"github.com/finreview/compliancereviewflow/internal/models"
)

var blankLineRe = regexp.MustCompile(`\n\s*\n+`)

// ExtractPDFText pulls the plain text layer out of a PDF payload and
// normalizes whitespace. Scanned documents with no text layer come back empty,
// which the text review pass treats as a skip, not a failure.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF for text extraction: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read extracted PDF text: %w", err)
	}
	return cleanExtractedText(buf.String()), nil
}

func cleanExtractedText(s string) string {
	return blankLineRe.ReplaceAllString(strings.TrimSpace(s), "\n")
}

// RunTextReview performs the text-only compliance pass over extracted document
// text. Empty input short-circuits to a skip report without a model call.
// Transport failures from the model are returned to the caller.
func RunTextReview(ctx context.Context, gen gcp.Generator, text, docName string) (models.ReviewReport, error) {
	if strings.TrimSpace(text) == "" {
		return models.ReviewReport{
			DocumentName:      "Text Review Skipped (Empty Input)",
			Sections:          []models.Finding{},
			OverallConclusion: "Text-based review skipped: input text was empty.",
		}, nil
	}

	instruction := strings.NewReplacer(
		"{{DOCUMENT_TEXT}}", text,
		"{{DOC_NAME}}", docName,
	).Replace(gcp.TextReviewInstruction)
	prompt := gcp.BaseReviewPrompt + "\n\n" + instruction

	raw, err := gen.Generate(ctx, genai.Text(prompt))
	if err != nil {
		return models.ReviewReport{}, fmt.Errorf("text review generation failed: %w", err)
	}
	return DecodeReviewReport(raw, "Text Review"), nil
}

// RunMultimodalReview performs the compliance pass over the rendered PDF
// itself, catching layout-dependent issues text extraction misses. Transport
// failures from the model are returned to the caller.
func RunMultimodalReview(ctx context.Context, gen gcp.Generator, pdfBytes []byte, docName string) (models.ReviewReport, error) {
	instruction := strings.ReplaceAll(gcp.MultimodalReviewInstruction, "{{DOC_NAME}}", docName)
	prompt := gcp.BaseReviewPrompt + "\n\n" + instruction

	raw, err := gen.Generate(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: pdfBytes},
		genai.Text(prompt),
	)
	if err != nil {
		return models.ReviewReport{}, fmt.Errorf("multimodal review generation failed: %w", err)
	}
	return DecodeReviewReport(raw, "Multimodal Review"), nil
}
