package repository

import (
	"context"
	"time"

	"postpilot/internal/domain/entity"
)

// ArticleListFilters contains optional filters for article listing.
type ArticleListFilters struct {
	CategorySlug string     // Optional: only articles linked to this category
	Source       string     // Optional: only articles from this canonical source
	Search       string     // Optional: case-insensitive match on title or summary
	From         *time.Time // Optional: published_at >= this instant
	To           *time.Time // Optional: published_at <= this instant
	WithImage    bool       // Optional: only articles that carry an image URL
}

// ContentCache is the extracted-body cache written after a successful
// full-text extraction and consulted before re-extracting.
type ContentCache struct {
	Text        string
	Extractor   string
	ExtractedAt time.Time
}

type ArticleRepository interface {
	Get(ctx context.Context, id string) (*entity.Article, error)
	GetByURL(ctx context.Context, normalizedURL string) (*entity.Article, error)
	// List retrieves articles ordered by published_at DESC, newest first.
	List(ctx context.Context, filters ArticleListFilters, offset, limit int) ([]*entity.Article, error)
	Count(ctx context.Context, filters ArticleListFilters) (int64, error)
	Create(ctx context.Context, article *entity.Article) error
	Update(ctx context.Context, article *entity.Article) error
	// ExistingByURL maps each normalized URL that already has a row to
	// its article ID, letting the ingest pass dedup a whole batch in
	// one query instead of probing per entry.
	ExistingByURL(ctx context.Context, urls []string) (map[string]string, error)
	// UpdateContentCache stores the extracted body for later reuse.
	UpdateContentCache(ctx context.Context, id string, cache ContentCache) error
	// IncrementGenerationCount bumps the per-article usage counter
	// after a draft generated from this article is persisted.
	IncrementGenerationCount(ctx context.Context, id string) error
	// SourceCounts returns, per canonical source name, how many live
	// articles a category currently has.
	SourceCounts(ctx context.Context, categorySlug string) (map[string]int64, error)
	// MostGenerated lists articles ordered by generation_count DESC.
	MostGenerated(ctx context.Context, limit int) ([]*entity.Article, error)
	// FeedSources maps every live article ID to the feed URL it was
	// ingested from, for the category repair pass.
	FeedSources(ctx context.Context) (map[string]string, error)
	// DeleteWithoutImage soft-deletes articles that have no image URL
	// and returns how many rows were affected.
	DeleteWithoutImage(ctx context.Context) (int64, error)
}
