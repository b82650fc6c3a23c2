package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"github.com/finreview/compliancereviewflow/internal/gcp"
	"github.com/finreview/compliancereviewflow/internal/models"
)

// Ports the pipeline coordinator depends on. The gcp package provides the
// production implementations; tests substitute fakes.
type (
	// ReviewStore persists pipeline stage results keyed by version ID.
	ReviewStore interface {
		SetFields(ctx context.Context, versionID string, fields map[string]any) error
	}

	// VersionRegistry reads and updates the external document-version records.
	VersionRegistry interface {
		Find(ctx context.Context, versionID string) (*models.DocumentVersion, error)
		SetStatus(ctx context.Context, versionID, status string) error
	}

	// ArtifactStore archives pipeline inputs and returns their URIs.
	ArtifactStore interface {
		Save(ctx context.Context, objectName string, content []byte) (string, error)
	}

	// Notifier is told when a pipeline run reaches a terminal status. Delivery
	// is a deployment concern; the default implementation only logs.
	Notifier interface {
		PipelineFinished(ctx context.Context, versionID, status string)
	}
)

// LogNotifier is the default Notifier.
type LogNotifier struct{}

func (LogNotifier) PipelineFinished(ctx context.Context, versionID, status string) {
	slog.InfoContext(ctx, "Pipeline finished.", "versionId", versionID, "status", status)
}

// PipelineConfig holds the deployment settings for the review pipeline.
type PipelineConfig struct {
	ProjectID            string
	VertexAIRegion       string
	ReviewCollection     string
	VersionCollection    string
	ArtifactsBucket      string
	DisclosureLibraryURI string
	Retry                RetryPolicy
}

// PipelineFunction runs the full compliance review for one document version:
// text review, multimodal review, synthesis, typo analysis and disclosure
// analysis, persisting each stage's result as soon as it is available.
type PipelineFunction struct {
	reviewGen     gcp.Generator
	synthesisGen  gcp.Generator
	typoGen       gcp.Generator
	disclosureGen gcp.Generator

	store       ReviewStore
	versions    VersionRegistry
	artifacts   ArtifactStore
	disclosures DisclosureSource
	notifier    Notifier

	storageClient *storage.Client
	config        PipelineConfig

	// extractText defaults to ExtractPDFText; overridable for testing.
	extractText func([]byte) (string, error)
}

// NewPipeline constructs the pipeline from the environment. It fails fast on
// missing required configuration so a misconfigured deployment is caught at
// cold start, not on the first request.
func NewPipeline(ctx context.Context) (*PipelineFunction, error) {
	cfg := PipelineConfig{
		ProjectID:            os.Getenv("GCP_PROJECT"),
		VertexAIRegion:       gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ReviewCollection:     gcp.GetEnv("REVIEW_COLLECTION", "ai-compliance-pre-check"),
		VersionCollection:    gcp.GetEnv("VERSION_COLLECTION", "document_versions"),
		ArtifactsBucket:      os.Getenv("ARTIFACTS_BUCKET"),
		DisclosureLibraryURI: os.Getenv("DISCLOSURE_LIBRARY_URI"),
		Retry:                RetryPolicyFromEnv(),
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT environment variable not set")
	}
	if cfg.ArtifactsBucket == "" {
		return nil, fmt.Errorf("ARTIFACTS_BUCKET environment variable not set")
	}
	if cfg.DisclosureLibraryURI == "" {
		return nil, fmt.Errorf("DISCLOSURE_LIBRARY_URI environment variable not set")
	}

	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Vertex AI client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Storage client: %w", err)
	}

	libBucket, libObject, err := gcp.ParseGCSUri(cfg.DisclosureLibraryURI)
	if err != nil {
		return nil, fmt.Errorf("invalid DISCLOSURE_LIBRARY_URI: %w", err)
	}

	return &PipelineFunction{
		reviewGen:     NewRetryingGenerator(vertexClient.Reviewer(), cfg.Retry),
		synthesisGen:  NewRetryingGenerator(vertexClient.Synthesizer(), cfg.Retry),
		typoGen:       NewRetryingGenerator(vertexClient.TypoAnalyzer(), cfg.Retry),
		disclosureGen: NewRetryingGenerator(vertexClient.DisclosureExtractor(), cfg.Retry),
		store:         gcp.NewReviewStore(firestoreClient, cfg.ReviewCollection),
		versions:      gcp.NewVersionRegistry(firestoreClient, cfg.VersionCollection),
		artifacts:     gcp.NewArtifactBucket(storageClient, cfg.ArtifactsBucket),
		disclosures:   NewWorkbookDisclosureSource(storageClient, libBucket, libObject),
		notifier:      LogNotifier{},
		storageClient: storageClient,
		config:        cfg,
	}, nil
}

// Process runs the pipeline for one request. The local copy of the PDF is
// removed on every exit path, success or failure.
func (f *PipelineFunction) Process(ctx context.Context, req *models.PipelineRequest) (*models.PipelineResponse, error) {
	if req.VersionID == "" {
		return nil, errors.New("versionId is required")
	}
	logCtx := slog.With("versionId", req.VersionID)

	localPath, err := f.materializePDF(ctx, req)
	if err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to obtain source PDF", err, logCtx)
	}
	defer f.removeLocalFile(localPath, logCtx)

	if err := f.store.SetFields(ctx, req.VersionID, map[string]any{
		"version_id": req.VersionID,
		"status":     models.StatusInProgress,
		"timestamp":  time.Now().UTC(),
	}); err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to mark review in progress", err, logCtx)
	}

	pdfBytes, err := os.ReadFile(localPath)
	if err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to read local PDF", err, logCtx)
	}

	extract := f.extractText
	if extract == nil {
		extract = ExtractPDFText
	}
	text, err := extract(pdfBytes)
	if err != nil {
		return nil, f.fail(ctx, req.VersionID, "text extraction failed", err, logCtx)
	}

	version, err := f.versions.Find(ctx, req.VersionID)
	if err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to load document version", err, logCtx)
	}
	docName := version.OriginalFilename
	if docName == "" {
		docName = "Document"
	}

	f.archiveArtifacts(ctx, req.VersionID, pdfBytes, text, logCtx)

	// Stage 1: text review.
	textRes, err := RunTextReview(ctx, f.reviewGen, text, docName)
	if err != nil {
		return nil, f.fail(ctx, req.VersionID, "text review failed", err, logCtx)
	}
	if err := f.saveStage(ctx, req.VersionID, "text_review", textRes); err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to persist text review", err, logCtx)
	}
	logCtx.Info("Text review complete.", "findings", len(textRes.Sections))

	// Stage 2: multimodal review.
	multiRes, err := RunMultimodalReview(ctx, f.reviewGen, pdfBytes, docName)
	if err != nil {
		return nil, f.fail(ctx, req.VersionID, "multimodal review failed", err, logCtx)
	}
	if err := f.saveStage(ctx, req.VersionID, "multimodal_review", multiRes); err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to persist multimodal review", err, logCtx)
	}
	logCtx.Info("Multimodal review complete.", "findings", len(multiRes.Sections))

	// Stage 3: synthesis.
	synthRes, err := RunSynthesisReview(ctx, f.synthesisGen, textRes, multiRes, pdfBytes, docName)
	if err != nil {
		return nil, f.fail(ctx, req.VersionID, "synthesis review failed", err, logCtx)
	}
	AttachReviewFlags(synthRes.Sections)
	if err := f.saveStage(ctx, req.VersionID, "synthesis_review", synthRes); err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to persist synthesis review", err, logCtx)
	}
	logCtx.Info("Synthesis review complete.", "findings", len(synthRes.Sections))

	// Stage 4: typo analysis (best-effort, never fails the run).
	typoRes := RunTypoAnalysis(ctx, f.typoGen, pdfBytes)
	AttachTypoFlags(typoRes.MissingPercentDetails)
	if err := f.saveStage(ctx, req.VersionID, "typo_analysis", typoRes); err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to persist typo analysis", err, logCtx)
	}

	// Stage 5: disclosure analysis. The reference library is required; the
	// extraction itself is best-effort inside AnalyzeDisclosures.
	required, err := f.disclosures.Load(ctx)
	if err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to load disclosure library", err, logCtx)
	}
	gaps := AnalyzeDisclosures(ctx, f.disclosureGen, required, pdfBytes)
	if err := f.saveStage(ctx, req.VersionID, "disclosure_analysis", gaps); err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to persist disclosure analysis", err, logCtx)
	}
	logCtx.Info("Disclosure analysis complete.", "gaps", len(gaps))

	// Terminal state. The version registry is updated first so a failure there
	// still leaves the review record non-terminal and the run reported failed.
	if err := f.versions.SetStatus(ctx, req.VersionID, models.VersionStatusReviewCompleted); err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to update document version status", err, logCtx)
	}
	if err := f.store.SetFields(ctx, req.VersionID, map[string]any{"status": models.StatusDone}); err != nil {
		return nil, f.fail(ctx, req.VersionID, "failed to mark review done", err, logCtx)
	}

	f.notifier.PipelineFinished(ctx, req.VersionID, models.StatusDone)
	return &models.PipelineResponse{VersionID: req.VersionID, Status: models.StatusDone}, nil
}

// materializePDF resolves the request to a local file path, downloading from
// GCS when only a URI was provided.
func (f *PipelineFunction) materializePDF(ctx context.Context, req *models.PipelineRequest) (string, error) {
	if req.LocalPath != "" {
		return req.LocalPath, nil
	}
	if req.GCSUri == "" {
		return "", errors.New("either gcsUri or localPath must be provided")
	}

	bucket, object, err := gcp.ParseGCSUri(req.GCSUri)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "review-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp.Close()

	if err := gcp.DownloadToFile(ctx, f.storageClient, bucket, object, tmp.Name()); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// archiveArtifacts stores the source PDF and its extracted text side by side.
// Archival is best-effort; a failure is logged and the review proceeds.
func (f *PipelineFunction) archiveArtifacts(ctx context.Context, versionID string, pdfBytes []byte, text string, logCtx *slog.Logger) {
	var pdfURI string
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		uri, err := f.artifacts.Save(gctx, path.Join(versionID, "source.pdf"), pdfBytes)
		pdfURI = uri
		return err
	})
	eg.Go(func() error {
		_, err := f.artifacts.Save(gctx, path.Join(versionID, "extracted.txt"), []byte(text))
		return err
	})
	if err := eg.Wait(); err != nil {
		logCtx.Warn("Artifact archival failed.", "error", err)
		return
	}
	if err := f.store.SetFields(ctx, versionID, map[string]any{"gcs_pdf": pdfURI}); err != nil {
		logCtx.Warn("Failed to record archived PDF location.", "error", err)
	}
}

func (f *PipelineFunction) saveStage(ctx context.Context, versionID, field string, result any) error {
	return f.store.SetFields(ctx, versionID, map[string]any{field: result})
}

// fail records the failure on both the review record and the version registry,
// notifies, and returns the error for the HTTP layer. Persistence failures
// inside fail are logged but never mask the original error.
func (f *PipelineFunction) fail(ctx context.Context, versionID, message string, cause error, logCtx *slog.Logger) error {
	logCtx.Error("Pipeline failed.", "stage", message, "error", cause)
	fullMessage := fmt.Sprintf("%s: %v", message, cause)

	if err := f.store.SetFields(ctx, versionID, map[string]any{
		"status":        models.StatusFailed,
		"error_message": fullMessage,
	}); err != nil {
		logCtx.Error("CRITICAL: failed to persist failed status.", "error", err)
	}
	if err := f.versions.SetStatus(ctx, versionID, models.VersionStatusFailed); err != nil {
		logCtx.Error("CRITICAL: failed to mark document version failed.", "error", err)
	}

	f.notifier.PipelineFinished(ctx, versionID, models.StatusFailed)
	return fmt.Errorf("%s: %w", message, cause)
}

func (f *PipelineFunction) removeLocalFile(localPath string, logCtx *slog.Logger) {
	if localPath == "" {
		return
	}
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		logCtx.Warn("Failed to remove local PDF.", "path", localPath, "error", err)
	}
}
