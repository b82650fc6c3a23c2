package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/finreview/compliancereviewflow/internal/gcp"
	"github.com/finreview/compliancereviewflow/internal/models"
)

// ComparisonInserter persists finished comparison results.
type ComparisonInserter interface {
	Insert(ctx context.Context, result *models.ComparisonResult) (string, error)
}

// ComparisonFunction compares two stored versions of the same collateral and
// persists the structured diff.
type ComparisonFunction struct {
	versions    VersionRegistry
	comparisons ComparisonInserter
	gen         gcp.Generator
}

// NewComparisonFunction constructs the comparison service from the
// environment.
func NewComparisonFunction(ctx context.Context) (*ComparisonFunction, error) {
	projectID := gcp.GetEnv("GCP_PROJECT", "")
	if projectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT environment variable not set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, projectID, gcp.GetEnv("VERTEX_AI_REGION", "us-central1"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Vertex AI client: %w", err)
	}

	return &ComparisonFunction{
		versions:    gcp.NewVersionRegistry(firestoreClient, gcp.GetEnv("VERSION_COLLECTION", "document_versions")),
		comparisons: gcp.NewComparisonStore(firestoreClient, gcp.GetEnv("COMPARISON_COLLECTION", "document_comparisons")),
		gen:         NewRetryingGenerator(vertexClient.Reviewer(), RetryPolicyFromEnv()),
	}, nil
}

// NewComparisonFunctionWithDeps wires the service from explicit dependencies.
func NewComparisonFunctionWithDeps(versions VersionRegistry, comparisons ComparisonInserter, gen gcp.Generator) *ComparisonFunction {
	return &ComparisonFunction{versions: versions, comparisons: comparisons, gen: gen}
}

// Process compares the two referenced versions. Both version records must
// exist and carry a stored PDF path; any model or parse failure surfaces as an
// error with nothing persisted.
func (f *ComparisonFunction) Process(ctx context.Context, req *models.ComparisonRequest) (*models.ComparisonResponse, error) {
	if req.Version1ID == "" || req.Version2ID == "" {
		return nil, errors.New("version1Id and version2Id are required")
	}

	doc1, err := f.versions.Find(ctx, req.Version1ID)
	if err != nil {
		return nil, err
	}
	doc2, err := f.versions.Find(ctx, req.Version2ID)
	if err != nil {
		return nil, err
	}
	if doc1.GCPPath == "" {
		return nil, fmt.Errorf("version %s: %w", req.Version1ID, models.ErrMissingGCPPath)
	}
	if doc2.GCPPath == "" {
		return nil, fmt.Errorf("version %s: %w", req.Version2ID, models.ErrMissingGCPPath)
	}

	raw, err := f.gen.Generate(ctx,
		genai.Text(gcp.ComparisonPrompt),
		genai.FileData{MIMEType: "application/pdf", FileURI: doc1.GCPPath},
		genai.FileData{MIMEType: "application/pdf", FileURI: doc2.GCPPath},
	)
	if err != nil {
		return nil, fmt.Errorf("comparison generation failed: %w", err)
	}
	if gcp.IsRefusalMarker(raw) {
		return nil, fmt.Errorf("comparison was blocked by the model: %s", raw)
	}

	var outcome map[string]any
	if err := DecodeJSONObject(raw, &outcome); err != nil {
		return nil, fmt.Errorf("comparison response was not valid JSON: %w", err)
	}
	// Some model revisions nest the payload under an "example" wrapper.
	if nested, ok := outcome["example"].(map[string]any); ok {
		outcome = nested
	}

	result := &models.ComparisonResult{
		Version1ID:        req.Version1ID,
		Version2ID:        req.Version2ID,
		GCSLinkVersion1:   doc1.GCPPath,
		GCSLinkVersion2:   doc2.GCPPath,
		ComparedAt:        time.Now().UTC(),
		ComparisonOutcome: outcome,
	}
	comparisonID, err := f.comparisons.Insert(ctx, result)
	if err != nil {
		return nil, err
	}

	slog.Info("Comparison stored.", "comparisonId", comparisonID,
		"version1Id", req.Version1ID, "version2Id", req.Version2ID)
	return &models.ComparisonResponse{ComparisonID: comparisonID, Result: outcome}, nil
}
