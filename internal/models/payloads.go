package models

// These structs define the JSON payloads for HTTP requests and responses
// between the review workflow and the worker Cloud Functions.

// PipelineRequest is the input for the review-pipeline function. Exactly one
// of GCSUri or LocalPath must be set: the workflow passes the GCS URI of the
// uploaded version; tests and local runs may pass a file path directly.
type PipelineRequest struct {
	VersionID string `json:"versionId"`
	GCSUri    string `json:"gcsUri,omitempty"`
	LocalPath string `json:"localPath,omitempty"`
}

// PipelineResponse is the output of the review-pipeline function.
type PipelineResponse struct {
	VersionID string `json:"versionId"`
	Status    string `json:"status"`
}

// ComparisonRequest is the input for the comparison-reviewer function.
type ComparisonRequest struct {
	Version1ID string `json:"version1Id"`
	Version2ID string `json:"version2Id"`
}

// ComparisonResponse is the output of the comparison-reviewer function.
type ComparisonResponse struct {
	ComparisonID string         `json:"comparisonId"`
	Result       map[string]any `json:"result"`
}

// ExplainRequest is the input for the finding-explainer function: one
// persisted finding plus the version whose PDF grounds the explanation.
type ExplainRequest struct {
	VersionID string  `json:"versionId"`
	Finding   Finding `json:"finding"`
}

// ExplainResponse is the output of the finding-explainer function.
type ExplainResponse struct {
	Explanation string `json:"explanation"`
}
