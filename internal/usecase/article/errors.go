// Package article provides the read-side use cases over ingested
// articles: filtered category listings, source breakdowns, and the
// most-generated ranking.
package article

import "errors"

// Sentinel errors for article query operations.
var (
	// ErrUnknownCategory indicates the requested category slug does not
	// exist in the catalog.
	ErrUnknownCategory = errors.New("unknown category")
)
