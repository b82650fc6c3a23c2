package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/finreview/compliancereviewflow/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// ReviewStore persists pipeline stage results keyed by document version ID.
// Every write is a merge-set on the version's document, so concurrent
// pipelines for different versions never conflict and each stage's output is
// durable the moment its write returns.
type ReviewStore struct {
	client     *firestore.Client
	collection string
}

// NewReviewStore creates a ReviewStore over the given collection.
func NewReviewStore(client *firestore.Client, collection string) *ReviewStore {
	return &ReviewStore{client: client, collection: collection}
}

// SetFields upserts the given fields on the review record for versionID.
func (s *ReviewStore) SetFields(ctx context.Context, versionID string, fields map[string]any) error {
	_, err := s.client.Collection(s.collection).Doc(versionID).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to upsert review record %s: %w", versionID, err)
	}
	return nil
}

// VersionRegistry reads and updates the external document-version records.
type VersionRegistry struct {
	client     *firestore.Client
	collection string
}

// NewVersionRegistry creates a VersionRegistry over the given collection.
func NewVersionRegistry(client *firestore.Client, collection string) *VersionRegistry {
	return &VersionRegistry{client: client, collection: collection}
}

// Find returns the version record, or models.ErrVersionNotFound when no such
// version exists. Callers treat that as fatal for the requesting operation.
func (r *VersionRegistry) Find(ctx context.Context, versionID string) (*models.DocumentVersion, error) {
	snap, err := r.client.Collection(r.collection).Doc(versionID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("version %s: %w", versionID, models.ErrVersionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document version %s: %w", versionID, err)
	}

	var version models.DocumentVersion
	if err := snap.DataTo(&version); err != nil {
		return nil, fmt.Errorf("failed to decode document version %s: %w", versionID, err)
	}
	return &version, nil
}

// SetStatus updates the status field on the version record.
func (r *VersionRegistry) SetStatus(ctx context.Context, versionID, versionStatus string) error {
	_, err := r.client.Collection(r.collection).Doc(versionID).Update(ctx, []firestore.Update{
		{Path: "status", Value: versionStatus},
	})
	if err != nil {
		return fmt.Errorf("failed to update status for version %s: %w", versionID, err)
	}
	return nil
}

// ComparisonStore persists document-comparison results.
type ComparisonStore struct {
	client     *firestore.Client
	collection string
}

// NewComparisonStore creates a ComparisonStore over the given collection.
func NewComparisonStore(client *firestore.Client, collection string) *ComparisonStore {
	return &ComparisonStore{client: client, collection: collection}
}

// Insert stores a comparison result and returns its generated document ID.
func (s *ComparisonStore) Insert(ctx context.Context, result *models.ComparisonResult) (string, error) {
	docRef, _, err := s.client.Collection(s.collection).Add(ctx, result)
	if err != nil {
		return "", fmt.Errorf("failed to store comparison result: %w", err)
	}
	return docRef.ID, nil
}
