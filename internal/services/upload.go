package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/finreview/compliancereviewflow/internal/gcp"
	"github.com/finreview/compliancereviewflow/internal/models"
)

type UploadWatcherConfig struct {
	ProjectID         string
	ArtifactsBucket   string
	ReviewCollection  string
	VersionCollection string
	WorkflowID        string
	WorkflowLocation  string
}

// UploadWatcherFunction handles new marketing-collateral uploads: it validates
// the PDF, registers a document version, archives the optimized copy, and
// hands off to the review workflow.
type UploadWatcherFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	config           UploadWatcherConfig
}

// GCSEvent is the subset of the storage object payload the watcher needs.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func NewUploadWatcher(ctx context.Context) (*UploadWatcherFunction, error) {
	projectID := gcp.GetEnv("GCP_PROJECT", "")
	if projectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT environment variable must be set")
	}

	config := UploadWatcherConfig{
		ProjectID:         projectID,
		ArtifactsBucket:   gcp.GetEnv("ARTIFACTS_BUCKET", ""),
		ReviewCollection:  gcp.GetEnv("REVIEW_COLLECTION", "ai-compliance-pre-check"),
		VersionCollection: gcp.GetEnv("VERSION_COLLECTION", "document_versions"),
		WorkflowLocation:  gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:        gcp.GetEnv("WORKFLOW_ID", "compliance-review-orchestrator"),
	}
	if config.ArtifactsBucket == "" {
		return nil, fmt.Errorf("ARTIFACTS_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &UploadWatcherFunction{
		firestoreClient:  firestoreClient,
		storageClient:    storageClient,
		executionsClient: executionsClient,
		config:           config,
	}
	slog.Info("Upload watcher initialized.", "workflowId", config.WorkflowID)
	return f, nil
}

// Process handles one uploaded object. Non-PDF objects and re-uploads of a
// PDF already registered are skipped cleanly.
func (f *UploadWatcherFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new upload.")

	if filepath.Ext(e.Name) != ".pdf" {
		logCtx.Info("Skipping non-PDF object.")
		return nil
	}

	tempDir, err := os.MkdirTemp("", "upload-watcher-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := gcp.DownloadToFile(ctx, f.storageClient, e.Bucket, e.Name, sourcePath); err != nil {
		logCtx.Error("Failed to download uploaded PDF", "error", err)
		return err
	}

	fileHash, err := calculateFileHash(sourcePath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, versionID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate upload detected. Skipping.", "existingVersionId", versionID)
		return nil
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(sourcePath, optimizedPath); err != nil {
		logCtx.Error("Uploaded file is not a usable PDF", "error", err)
		return fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		logCtx.Error("Failed to get page count", "error", err)
		return fmt.Errorf("failed to get page count: %w", err)
	}

	versionRef, gcsURI, err := f.registerVersion(ctx, e.Name, fileHash, pageCount, optimizedPath)
	if err != nil {
		logCtx.Error("Failed to register document version", "error", err)
		return err
	}
	logCtx = logCtx.With("versionId", versionRef.ID)
	logCtx.Info("Registered document version.", "pageCount", pageCount)

	if err := f.createReviewRecord(ctx, versionRef.ID, pageCount); err != nil {
		logCtx.Error("Failed to create review record", "error", err)
		return err
	}

	if err := f.triggerWorkflow(ctx, versionRef.ID, gcsURI); err != nil {
		logCtx.Error("Failed to trigger review workflow", "error", err)
		return err
	}

	logCtx.Info("Hand-off to review workflow complete.")
	return nil
}

func (f *UploadWatcherFunction) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.VersionCollection).
		Where("file_hash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

// registerVersion archives the optimized PDF and creates the version record
// pointing at it.
func (f *UploadWatcherFunction) registerVersion(ctx context.Context, originalName, fileHash string, pageCount int, optimizedPath string) (*firestore.DocumentRef, string, error) {
	content, err := os.ReadFile(optimizedPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read optimized PDF: %w", err)
	}

	versionRef := f.firestoreClient.Collection(f.config.VersionCollection).NewDoc()
	objectName := fmt.Sprintf("%s/source.pdf", versionRef.ID)
	bucket := gcp.NewArtifactBucket(f.storageClient, f.config.ArtifactsBucket)
	gcsURI, err := bucket.Save(ctx, objectName, content)
	if err != nil {
		return nil, "", fmt.Errorf("failed to archive optimized PDF: %w", err)
	}

	version := models.DocumentVersion{
		GCPPath:          gcsURI,
		OriginalFilename: filepath.Base(originalName),
		FileHash:         fileHash,
		Status:           models.VersionStatusUploaded,
		PageCount:        pageCount,
		CreatedAt:        time.Now().UTC(),
	}
	if _, err := versionRef.Set(ctx, version); err != nil {
		return nil, "", fmt.Errorf("failed to create version record: %w", err)
	}
	return versionRef, gcsURI, nil
}

func (f *UploadWatcherFunction) createReviewRecord(ctx context.Context, versionID string, pageCount int) error {
	store := gcp.NewReviewStore(f.firestoreClient, f.config.ReviewCollection)
	return store.SetFields(ctx, versionID, map[string]any{
		"version_id": versionID,
		"status":     models.StatusInProgress,
		"page_count": pageCount,
		"timestamp":  time.Now().UTC(),
	})
}

func (f *UploadWatcherFunction) triggerWorkflow(ctx context.Context, versionID, gcsURI string) error {
	payload := map[string]interface{}{
		"versionId": versionID,
		"gcsUri":    gcsURI,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s",
			f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	if _, err := f.executionsClient.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
