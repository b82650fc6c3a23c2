package models

import "time"

// Pipeline run statuses persisted on the review record.
const (
	StatusInProgress = "in-progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Terminal statuses written to the document-version registry.
const (
	VersionStatusReviewCompleted = "ai_compliance_review_completed"
	VersionStatusFailed          = "failed"
)

// ReviewRecord is the per-document-version review document in Firestore.
// Each pipeline stage writes exactly one of the result slots via a merge-set,
// so a crash mid-pipeline leaves the completed stages durable.
type ReviewRecord struct {
	VersionID          string            `firestore:"version_id,omitempty"`
	Status             string            `firestore:"status,omitempty"`
	ErrorMessage       string            `firestore:"error_message,omitempty"`
	GCSPdf             string            `firestore:"gcs_pdf,omitempty"`
	PageCount          int               `firestore:"page_count,omitempty"`
	TextReview         *ReviewReport     `firestore:"text_review,omitempty"`
	MultimodalReview   *ReviewReport     `firestore:"multimodal_review,omitempty"`
	SynthesisReview    *ReviewReport     `firestore:"synthesis_review,omitempty"`
	TypoAnalysis       *TypoReport       `firestore:"typo_analysis,omitempty"`
	DisclosureAnalysis []DisclosureMatch `firestore:"disclosure_analysis,omitempty"`
	Timestamp          time.Time         `firestore:"timestamp,omitempty"`
}

// DocumentVersion is the external registry record for one uploaded version.
type DocumentVersion struct {
	GCPPath          string    `firestore:"gcp_path,omitempty"`
	OriginalFilename string    `firestore:"original_filename,omitempty"`
	FileHash         string    `firestore:"file_hash,omitempty"`
	Status           string    `firestore:"status,omitempty"`
	PageCount        int       `firestore:"page_count,omitempty"`
	CreatedAt        time.Time `firestore:"created_at,omitempty"`
}

// Version status written at upload intake.
const VersionStatusUploaded = "uploaded"

// ComparisonResult is one stored comparison between two document versions.
type ComparisonResult struct {
	Version1ID        string         `firestore:"version1_id" json:"version1_id"`
	Version2ID        string         `firestore:"version2_id" json:"version2_id"`
	GCSLinkVersion1   string         `firestore:"gcs_link_version1" json:"gcs_link_version1"`
	GCSLinkVersion2   string         `firestore:"gcs_link_version2" json:"gcs_link_version2"`
	ComparedAt        time.Time      `firestore:"compared_at" json:"compared_at"`
	ComparisonOutcome map[string]any `firestore:"comparison_result" json:"comparison_result"`
}
