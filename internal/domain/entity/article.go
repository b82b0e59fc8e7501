// Package entity defines the core domain entities for the content platform:
// articles ingested from RSS feeds, their category links, users with
// generation quotas, and persisted generation drafts.
package entity

import "time"

// Article represents a news article ingested from an RSS feed.
// Identity is the unique normalized URL; exactly one non-deleted row
// exists per normalized URL.
type Article struct {
	ID         string
	Source     string // originating feed URL
	SourceName string // normalized human-readable source name
	URL        string
	Title      string
	Summary    string
	Topics     map[string]float64 // keyword -> normalized frequency

	// Cached full-text extraction, refreshed opportunistically during
	// generation when stale.
	ContentText        string
	ContentExtractedAt *time.Time
	ContentExtractor   string

	ImageURL        string
	GenerationCount int

	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Deleted reports whether the article has been soft-deleted.
func (a *Article) Deleted() bool {
	return a.DeletedAt != nil
}
