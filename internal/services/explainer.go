package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/finreview/compliancereviewflow/internal/gcp"
	"github.com/finreview/compliancereviewflow/internal/models"
)

// ExplainerFunction produces a plain-text rationale for one compliance
// finding, grounded in the original PDF.
type ExplainerFunction struct {
	versions VersionRegistry
	gen      gcp.Generator
}

// NewExplainerFunction constructs the explainer service from the environment.
func NewExplainerFunction(ctx context.Context) (*ExplainerFunction, error) {
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

	return &ExplainerFunction{
		versions: gcp.NewVersionRegistry(firestoreClient, gcp.GetEnv("VERSION_COLLECTION", "document_versions")),
		gen:      NewRetryingGenerator(vertexClient.Reviewer(), RetryPolicyFromEnv()),
	}, nil
}

// NewExplainerFunctionWithDeps wires the service from explicit dependencies.
func NewExplainerFunctionWithDeps(versions VersionRegistry, gen gcp.Generator) *ExplainerFunction {
	return &ExplainerFunction{versions: versions, gen: gen}
}

// Process explains the given finding against the stored PDF for the version.
func (f *ExplainerFunction) Process(ctx context.Context, req *models.ExplainRequest) (*models.ExplainResponse, error) {
	if req.VersionID == "" {
		return nil, errors.New("versionId is required")
	}

	version, err := f.versions.Find(ctx, req.VersionID)
	if err != nil {
		return nil, err
	}
	if version.GCPPath == "" {
		return nil, fmt.Errorf("version %s: %w", req.VersionID, models.ErrMissingGCPPath)
	}

	findingJSON, err := json.MarshalIndent(req.Finding, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode finding: %w", err)
	}
	prompt := strings.ReplaceAll(gcp.ExplainPrompt, "{{FINDING_JSON}}", string(findingJSON))

	raw, err := f.gen.Generate(ctx,
		genai.FileData{MIMEType: "application/pdf", FileURI: version.GCPPath},
		genai.Text(prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("explanation generation failed: %w", err)
	}
	if gcp.IsRefusalMarker(raw) {
		return nil, fmt.Errorf("explanation was blocked by the model: %s", raw)
	}

	return &models.ExplainResponse{Explanation: raw}, nil
}
