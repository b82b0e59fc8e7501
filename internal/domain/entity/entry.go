package entity

import "time"

// Entry is one parsed feed item prior to persistence. It carries the
// originating feed URL so the deduplicator can derive the intended
// category from the registry rather than trusting the caller.
type Entry struct {
	Link        string
	Title       string
	Summary     string
	ImageURL    string
	PublishedAt *time.Time
	FeedURL     string
	SourceName  string
}
