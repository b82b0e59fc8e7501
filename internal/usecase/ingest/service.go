// Package ingest implements the feed ingestion pipeline: crawling the
// registry's RSS feeds, deduplicating entries by normalized URL,
// linking articles to their registry-derived category and repairing
// links that have drifted.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"postpilot/internal/domain/entity"
	"postpilot/internal/feeds"
	"postpilot/internal/infra/fetcher"
	"postpilot/internal/observability/metrics"
	"postpilot/internal/repository"
	"postpilot/internal/usecase/notify"
)

const (
	feedConcurrency = 10               // concurrent feed fetches per category
	feedTimeout     = 20 * time.Second // budget for one feed fetch

	maxTitleLength   = 1000
	maxSummaryLength = 5000

	// Fallback extraction keeps much less than a feed-provided summary,
	// since readability output is unbounded prose.
	fallbackTitleLength   = 120
	fallbackSummaryLength = 500
)

// FeedFetcher fetches and parses one RSS/Atom feed into entries.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL, sourceName string) ([]entity.Entry, error)
}

// ContentFetcher extracts readable text from an article page. Used to
// backfill titles and summaries for feeds that omit them.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (fetcher.Result, error)
}

// Service orchestrates feed refreshes against the static registry.
type Service struct {
	Registry       *feeds.Registry
	ArticleRepo    repository.ArticleRepository
	CategoryRepo   repository.CategoryRepository
	LinkRepo       repository.ArticleCategoryRepository
	FeedFetcher    FeedFetcher
	ContentFetcher ContentFetcher // optional, nil disables summary backfill
	NotifyService  notify.Service // optional, nil disables crawl reports
	Normalizer     feeds.URLNormalizer

	now   func() time.Time
	newID func() string

	// categoryIDs caches slug -> row ID within a single refresh pass.
	categoryMu  sync.Mutex
	categoryIDs map[string]string
}

// NewService creates an ingest Service with the provided dependencies.
// ContentFetcher and NotifyService may be nil to disable the
// corresponding behavior.
func NewService(
	registry *feeds.Registry,
	articleRepo repository.ArticleRepository,
	categoryRepo repository.CategoryRepository,
	linkRepo repository.ArticleCategoryRepository,
	feedFetcher FeedFetcher,
	contentFetcher ContentFetcher,
	notifyService notify.Service,
) *Service {
	return &Service{
		Registry:       registry,
		ArticleRepo:    articleRepo,
		CategoryRepo:   categoryRepo,
		LinkRepo:       linkRepo,
		FeedFetcher:    feedFetcher,
		ContentFetcher: contentFetcher,
		NotifyService:  notifyService,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
		categoryIDs:    make(map[string]string),
	}
}

// CrawlStats contains statistics about one refresh operation.
type CrawlStats struct {
	Feeds       int
	Entries     int64
	Inserted    int64
	Duplicated  int64
	Skipped     int64 // entries without a usable link or title
	FetchErrors int64
	Duration    time.Duration
}

// RepairStats summarizes one category repair pass.
type RepairStats struct {
	Repaired             int64
	SkippedUnknownSource int64
}

// RefreshAll crawls every category in the registry sequentially and
// reports the aggregate to the notification channels.
func (s *Service) RefreshAll(ctx context.Context) (*CrawlStats, error) {
	s.invalidateCategoryCache()

	start := s.now()
	total := &CrawlStats{}

	for _, cat := range s.Registry.Categories() {
		stats, err := s.refreshCategory(ctx, cat)
		if err != nil {
			return total, fmt.Errorf("refresh category %s: %w", cat.Slug, err)
		}
		total.Feeds += stats.Feeds
		total.Entries += stats.Entries
		total.Inserted += stats.Inserted
		total.Duplicated += stats.Duplicated
		total.Skipped += stats.Skipped
		total.FetchErrors += stats.FetchErrors
	}
	total.Duration = time.Since(start)

	if count, err := s.ArticleRepo.Count(ctx, repository.ArticleListFilters{}); err == nil {
		metrics.UpdateArticlesTotal(int(count))
	}

	slog.Info("full refresh completed",
		slog.Int("feeds", total.Feeds),
		slog.Int64("entries", total.Entries),
		slog.Int64("inserted", total.Inserted),
		slog.Int64("duplicated", total.Duplicated),
		slog.Int64("fetch_errors", total.FetchErrors),
		slog.Duration("duration", total.Duration))

	s.reportCrawl(ctx, "all", total)
	return total, nil
}

// RefreshCategory crawls the feeds of a single category.
// Returns ErrUnknownCategory for slugs absent from the registry.
func (s *Service) RefreshCategory(ctx context.Context, slug string) (*CrawlStats, error) {
	cat, ok := s.Registry.Category(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, slug)
	}
	s.invalidateCategoryCache()

	stats, err := s.refreshCategory(ctx, cat)
	if err != nil {
		return stats, err
	}
	s.reportCrawl(ctx, slug, stats)
	return stats, nil
}

func (s *Service) refreshCategory(ctx context.Context, cat feeds.Category) (*CrawlStats, error) {
	start := s.now()
	stats := &CrawlStats{Feeds: len(cat.Feeds)}

	var (
		mu      sync.Mutex
		entries []entity.Entry
	)

	sem := make(chan struct{}, feedConcurrency)
	eg, egCtx := errgroup.WithContext(ctx)
	for _, feed := range cat.Feeds {
		feed := feed
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			fetchCtx, cancel := context.WithTimeout(egCtx, feedTimeout)
			defer cancel()

			items, err := s.FeedFetcher.Fetch(fetchCtx, feed.URL, feed.Name)
			if err != nil {
				slog.Warn("failed to fetch feed",
					slog.String("category", cat.Slug),
					slog.String("feed_url", feed.URL),
					slog.Any("error", err))
				metrics.RecordFeedCrawlError(feed.URL, "fetch_failed")
				atomic.AddInt64(&stats.FetchErrors, 1)
				return nil
			}
			metrics.RecordEntriesFetched(feed.Name, len(items))

			mu.Lock()
			entries = append(entries, items...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, err
	}

	stats.Entries = int64(len(entries))
	if err := s.saveEntries(ctx, entries, cat.Slug, stats); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	metrics.RecordFeedCrawl(cat.Slug, stats.Duration, stats.Inserted, stats.Duplicated)

	slog.Info("category refresh completed",
		slog.String("category", cat.Slug),
		slog.Int("feeds", stats.Feeds),
		slog.Int64("entries", stats.Entries),
		slog.Int64("inserted", stats.Inserted),
		slog.Int64("duplicated", stats.Duplicated),
		slog.Int64("fetch_errors", stats.FetchErrors),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// saveEntries deduplicates and persists a batch of entries. Entries
// whose normalized URL already has a row are relinked to their
// registry-derived category instead of inserted again; the winning
// category for every entry is the one its feed URL is bound to in the
// registry, falling back to the crawled category's slug.
func (s *Service) saveEntries(ctx context.Context, entries []entity.Entry, defaultSlug string, stats *CrawlStats) error {
	if len(entries) == 0 {
		return nil
	}

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Link != "" {
			urls = append(urls, s.Normalizer.Normalize(e.Link))
		}
	}
	existing, err := s.ArticleRepo.ExistingByURL(ctx, urls)
	if err != nil {
		return fmt.Errorf("batch check existing URLs: %w", err)
	}

	for _, entry := range entries {
		if entry.Link == "" {
			stats.Skipped++
			continue
		}
		normalized := s.Normalizer.Normalize(entry.Link)

		slug, bound := s.Registry.CategoryForFeed(entry.FeedURL)
		if !bound {
			slug = defaultSlug
		}
		categoryID, err := s.ensureCategory(ctx, slug)
		if err != nil {
			return fmt.Errorf("ensure category %s: %w", slug, err)
		}

		if articleID, ok := existing[normalized]; ok {
			stats.Duplicated++
			if err := s.relink(ctx, articleID, categoryID); err != nil {
				slog.Warn("failed to relink duplicate article",
					slog.String("article_id", articleID),
					slog.String("category", slug),
					slog.Any("error", err))
			}
			continue
		}

		article, ok := s.buildArticle(ctx, entry)
		if !ok {
			stats.Skipped++
			continue
		}
		// One entry failing to persist must not lose the rest of the batch.
		if err := s.ArticleRepo.Create(ctx, article); err != nil {
			slog.Warn("failed to create article",
				slog.String("url", entry.Link),
				slog.Any("error", err))
			stats.Skipped++
			continue
		}
		if err := s.LinkRepo.Link(ctx, article.ID, categoryID); err != nil {
			slog.Warn("failed to link article to category",
				slog.String("article_id", article.ID),
				slog.Any("error", err))
		}
		existing[normalized] = article.ID
		stats.Inserted++
	}
	return nil
}

// relink makes categoryID the article's only category link.
func (s *Service) relink(ctx context.Context, articleID, categoryID string) error {
	if _, err := s.LinkRepo.DeleteOtherLinks(ctx, articleID, categoryID); err != nil {
		return err
	}
	return s.LinkRepo.Link(ctx, articleID, categoryID)
}

// buildArticle turns a feed entry into a persistable article, filling
// missing titles and summaries from the page itself when possible.
// Returns false when no usable title can be derived.
func (s *Service) buildArticle(ctx context.Context, entry entity.Entry) (*entity.Article, bool) {
	title := strings.TrimSpace(entry.Title)
	summary := strings.TrimSpace(entry.Summary)

	if (title == "" || summary == "") && s.ContentFetcher != nil {
		fbTitle, fbSummary := s.fallbackExtract(ctx, entry.Link)
		if title == "" {
			title = fbTitle
		}
		if summary == "" {
			summary = fbSummary
		}
	}
	if title == "" {
		slog.Debug("skipping entry without title", slog.String("url", entry.Link))
		return nil, false
	}

	now := s.now()
	return &entity.Article{
		ID:          s.newID(),
		Source:      entry.FeedURL,
		SourceName:  entry.SourceName,
		URL:         entry.Link,
		Title:       truncateRunes(title, maxTitleLength),
		Summary:     truncateRunes(summary, maxSummaryLength),
		Topics:      ExtractTopics(title, summary),
		ImageURL:    entry.ImageURL,
		PublishedAt: entry.PublishedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, true
}

// fallbackExtract pulls readable text from the article page and derives
// a short title and summary from it. Best effort, returns empty strings
// on any failure.
func (s *Service) fallbackExtract(ctx context.Context, url string) (title, summary string) {
	start := s.now()
	result, err := s.ContentFetcher.FetchContent(ctx, url)
	duration := time.Since(start)
	if err != nil {
		slog.Warn("fallback content fetch failed",
			slog.String("url", url),
			slog.Any("error", err))
		metrics.RecordContentFetchFailed(duration)
		return "", ""
	}
	metrics.RecordContentFetchSuccess(duration, len(result.Text))

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ""
	}
	title = text
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		title = text[:idx]
	}
	return truncateRunes(strings.TrimSpace(title), fallbackTitleLength),
		truncateRunes(text, fallbackSummaryLength)
}

// invalidateCategoryCache drops the slug cache so the next pass
// re-upserts registry metadata instead of reusing stale row IDs.
func (s *Service) invalidateCategoryCache() {
	s.categoryMu.Lock()
	s.categoryIDs = make(map[string]string)
	s.categoryMu.Unlock()
}

// ensureCategory resolves a slug to its database row ID, upserting the
// registry metadata on first use within the pass and caching the ID.
func (s *Service) ensureCategory(ctx context.Context, slug string) (string, error) {
	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	if id, ok := s.categoryIDs[slug]; ok {
		return id, nil
	}

	cat := &entity.Category{Slug: slug, Name: slug}
	if reg, ok := s.Registry.Category(slug); ok {
		cat.Name = reg.Name
		cat.ImagePath = reg.Image
	}
	id, err := s.CategoryRepo.Ensure(ctx, cat)
	if err != nil {
		return "", err
	}
	s.categoryIDs[slug] = id
	return id, nil
}

// SyncCategories upserts every registry category into the database.
// Run at startup so list endpoints see categories before the first crawl.
func (s *Service) SyncCategories(ctx context.Context) error {
	for _, cat := range s.Registry.Categories() {
		if _, err := s.ensureCategory(ctx, cat.Slug); err != nil {
			return fmt.Errorf("sync category %s: %w", cat.Slug, err)
		}
	}
	return nil
}

// RepairCategories walks every stored article and relinks it to the
// category its originating feed URL is bound to in the registry.
// Articles whose feed is no longer in the registry are left untouched
// and counted. With dryRun set, nothing is written; the stats report
// what a real run would do.
func (s *Service) RepairCategories(ctx context.Context, dryRun bool) (*RepairStats, error) {
	sources, err := s.ArticleRepo.FeedSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list article feed sources: %w", err)
	}

	stats := &RepairStats{}
	for articleID, feedURL := range sources {
		slug, bound := s.Registry.CategoryForFeed(feedURL)
		if !bound {
			stats.SkippedUnknownSource++
			continue
		}
		if !dryRun {
			categoryID, err := s.ensureCategory(ctx, slug)
			if err != nil {
				return stats, fmt.Errorf("ensure category %s: %w", slug, err)
			}
			if err := s.relink(ctx, articleID, categoryID); err != nil {
				return stats, fmt.Errorf("relink article %s: %w", articleID, err)
			}
		}
		stats.Repaired++
	}

	slog.Info("category repair completed",
		slog.Bool("dry_run", dryRun),
		slog.Int64("repaired", stats.Repaired),
		slog.Int64("skipped_unknown_source", stats.SkippedUnknownSource))
	return stats, nil
}

// PurgeWithoutImage soft-deletes every article without an image URL.
func (s *Service) PurgeWithoutImage(ctx context.Context) (int64, error) {
	deleted, err := s.ArticleRepo.DeleteWithoutImage(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete articles without image: %w", err)
	}
	slog.Info("purged articles without image", slog.Int64("deleted", deleted))
	return deleted, nil
}

// reportCrawl dispatches a crawl summary, never failing the refresh.
func (s *Service) reportCrawl(ctx context.Context, scope string, stats *CrawlStats) {
	if s.NotifyService == nil {
		return
	}
	err := s.NotifyService.NotifyCrawlReport(ctx, notify.CrawlReport{
		Scope:      scope,
		Feeds:      stats.Feeds,
		Entries:    stats.Entries,
		Inserted:   stats.Inserted,
		Duplicated: stats.Duplicated,
		Errors:     stats.FetchErrors,
		Duration:   stats.Duration,
	})
	if err != nil {
		slog.Warn("failed to dispatch crawl report",
			slog.String("scope", scope),
			slog.Any("error", err))
	}
}

// truncateRunes caps s at max runes without splitting a code point.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
