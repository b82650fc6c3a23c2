package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/finreview/compliancereviewflow/internal/gcp"
	"github.com/finreview/compliancereviewflow/internal/models"
)

// DisclosureSource yields the required disclosure texts the reviewed document
// is checked against.
type DisclosureSource interface {
	Load(ctx context.Context) ([]string, error)
}

// disclosureColumn is the zero-based column of the disclosure text in the
// reference workbook (column E of the compliance library template).
const disclosureColumn = 4

// WorkbookDisclosureSource loads the disclosure library from an Excel workbook
// stored in GCS. The first row is a header and is skipped; blank cells are
// dropped.
type WorkbookDisclosureSource struct {
	client *storage.Client
	bucket string
	object string
}

func NewWorkbookDisclosureSource(client *storage.Client, bucket, object string) *WorkbookDisclosureSource {
	return &WorkbookDisclosureSource{client: client, bucket: bucket, object: object}
}

func (s *WorkbookDisclosureSource) Load(ctx context.Context) ([]string, error) {
	data, err := gcp.ReadObject(ctx, s.client, s.bucket, s.object)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch disclosure workbook: %w", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open disclosure workbook: %w", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(wb.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read disclosure sheet: %w", err)
	}

	var disclosures []string
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) <= disclosureColumn {
			continue
		}
		text := strings.TrimSpace(row[disclosureColumn])
		if text == "" {
			continue
		}
		disclosures = append(disclosures, text)
	}
	return disclosures, nil
}

// ReconcileDisclosures scores every required disclosure against the candidate
// texts extracted from the document. Each disclosure is matched to the
// candidate with the strictly highest similarity; on ties the earliest
// candidate wins. With no candidates at all every disclosure comes back as
// Not Present with a zero score.
func ReconcileDisclosures(required []string, candidates []models.DisclosureCandidate) []models.DisclosureMatch {
	results := make([]models.DisclosureMatch, 0, len(required))
	for _, expected := range required {
		best := models.DisclosureMatch{
			ID:                 uuid.NewString(),
			ExpectedDisclosure: expected,
			MatchedText:        "",
			Pages:              "N/A",
			MatchScore:         0,
		}
		for _, candidate := range candidates {
			score := SimilarityScore(expected, candidate.Text)
			if score > best.MatchScore {
				best.MatchScore = score
				best.MatchedText = candidate.Text
				best.Pages = candidate.Pages
			}
		}
		best.Status = ClassifyScore(best.MatchScore)
		results = append(results, best)
	}
	return results
}

// FilterDisclosureGaps drops exact matches, keeping only the disclosures a
// reviewer needs to act on.
func FilterDisclosureGaps(results []models.DisclosureMatch) []models.DisclosureMatch {
	gaps := make([]models.DisclosureMatch, 0, len(results))
	for _, r := range results {
		if r.Status == models.DisclosurePartiallyPresent || r.Status == models.DisclosureNotPresent {
			gaps = append(gaps, r)
		}
	}
	return gaps
}

// AnalyzeDisclosures runs the full disclosure check: extract candidate
// disclosures from the PDF via the model, then reconcile them against the
// required list locally. Extraction failures of any kind degrade to an empty
// candidate set rather than aborting the pipeline; every required disclosure
// then reports as Not Present.
func AnalyzeDisclosures(ctx context.Context, gen gcp.Generator, required []string, pdfBytes []byte) []models.DisclosureMatch {
	var candidates []models.DisclosureCandidate

	raw, err := gen.Generate(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: pdfBytes},
		genai.Text(gcp.DisclosureExtractionSystemPrompt),
		genai.Text(gcp.DisclosureExtractionUserPrompt),
	)
	switch {
	case err != nil:
		slog.Warn("Disclosure extraction call failed; treating document as having no disclosures.", "error", err)
	case gcp.IsRefusalMarker(raw):
		slog.Warn("Disclosure extraction was blocked; treating document as having no disclosures.", "marker", raw)
	default:
		var payload struct {
			Disclosures []models.DisclosureCandidate `json:"disclosures"`
		}
		if err := DecodeJSONObject(raw, &payload); err != nil {
			slog.Warn("Disclosure extraction response was not valid JSON; treating document as having no disclosures.", "error", err)
		} else {
			candidates = payload.Disclosures
		}
	}

	return FilterDisclosureGaps(ReconcileDisclosures(required, candidates))
}
