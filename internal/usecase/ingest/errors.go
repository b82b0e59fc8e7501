package ingest

import "errors"

// Sentinel errors for ingest use case operations.
var (
	// ErrUnknownCategory indicates a refresh was requested for a slug
	// that does not exist in the feed registry.
	ErrUnknownCategory = errors.New("unknown category")
)
