package models

import "errors"

// Upstream data errors. These are fatal to the single operation that hit them
// and are surfaced to the caller rather than silently defaulted.
var (
	ErrVersionNotFound = errors.New("document version not found")
	ErrMissingGCPPath  = errors.New("document version has no gcp_path")
)
