package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"postpilot/internal/domain/entity"
	"postpilot/internal/feeds"
	"postpilot/internal/infra/fetcher"
	"postpilot/internal/repository"
)

type mockArticleRepo struct {
	repository.ArticleRepository

	created     []*entity.Article
	existing    map[string]string
	feedSources map[string]string
	purged      int64
	existingErr error
}

func (m *mockArticleRepo) Create(_ context.Context, article *entity.Article) error {
	m.created = append(m.created, article)
	return nil
}

func (m *mockArticleRepo) ExistingByURL(_ context.Context, _ []string) (map[string]string, error) {
	if m.existingErr != nil {
		return nil, m.existingErr
	}
	if m.existing == nil {
		return map[string]string{}, nil
	}
	return m.existing, nil
}

func (m *mockArticleRepo) Count(_ context.Context, _ repository.ArticleListFilters) (int64, error) {
	return int64(len(m.created)), nil
}

func (m *mockArticleRepo) FeedSources(_ context.Context) (map[string]string, error) {
	return m.feedSources, nil
}

func (m *mockArticleRepo) DeleteWithoutImage(_ context.Context) (int64, error) {
	return m.purged, nil
}

type mockCategoryRepo struct {
	repository.CategoryRepository

	ensured []*entity.Category
}

func (m *mockCategoryRepo) Ensure(_ context.Context, category *entity.Category) (string, error) {
	m.ensured = append(m.ensured, category)
	return "cat-" + category.Slug, nil
}

type mockLinkRepo struct {
	repository.ArticleCategoryRepository

	links        map[string]string // articleID -> categoryID
	otherDeleted []string
}

func (m *mockLinkRepo) Link(_ context.Context, articleID, categoryID string) error {
	if m.links == nil {
		m.links = make(map[string]string)
	}
	m.links[articleID] = categoryID
	return nil
}

func (m *mockLinkRepo) DeleteOtherLinks(_ context.Context, articleID, _ string) (int64, error) {
	m.otherDeleted = append(m.otherDeleted, articleID)
	return 1, nil
}

type mockFeedFetcher struct {
	entries map[string][]entity.Entry // feed URL -> entries
	err     error
}

func (m *mockFeedFetcher) Fetch(_ context.Context, feedURL, _ string) ([]entity.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries[feedURL], nil
}

type mockContentFetcher struct {
	text string
	err  error
}

func (m *mockContentFetcher) FetchContent(_ context.Context, _ string) (fetcher.Result, error) {
	if m.err != nil {
		return fetcher.Result{}, m.err
	}
	return fetcher.Result{Text: m.text, Extractor: "readability", ExtractedAt: time.Now()}, nil
}

func loadRegistry(t *testing.T) *feeds.Registry {
	t.Helper()
	reg, err := feeds.Load()
	if err != nil {
		t.Fatalf("feeds.Load() error = %v", err)
	}
	return reg
}

func newTestService(reg *feeds.Registry, articles *mockArticleRepo, cats *mockCategoryRepo, links *mockLinkRepo, feedFetcher FeedFetcher, contentFetcher ContentFetcher) *Service {
	return NewService(reg, articles, cats, links, feedFetcher, contentFetcher, nil)
}

func TestRefreshCategoryUnknownSlug(t *testing.T) {
	svc := newTestService(loadRegistry(t), &mockArticleRepo{}, &mockCategoryRepo{}, &mockLinkRepo{}, &mockFeedFetcher{}, nil)

	_, err := svc.RefreshCategory(context.Background(), "no-such-category")
	if !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("RefreshCategory() error = %v, want ErrUnknownCategory", err)
	}
}

func TestRefreshCategoryInsertsNewEntries(t *testing.T) {
	reg := loadRegistry(t)
	cat := reg.Categories()[0]
	feedURL := cat.Feeds[0].URL

	published := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	articles := &mockArticleRepo{}
	links := &mockLinkRepo{}
	ff := &mockFeedFetcher{entries: map[string][]entity.Entry{
		feedURL: {
			{Link: "https://example.com/a?utm_source=rss", Title: "First article", Summary: "Body one", FeedURL: feedURL, SourceName: cat.Feeds[0].Name, PublishedAt: &published},
			{Link: "https://example.com/b", Title: "Second article", Summary: "Body two", FeedURL: feedURL, SourceName: cat.Feeds[0].Name},
		},
	}}
	svc := newTestService(reg, articles, &mockCategoryRepo{}, links, ff, nil)

	stats, err := svc.RefreshCategory(context.Background(), cat.Slug)
	if err != nil {
		t.Fatalf("RefreshCategory() error = %v", err)
	}
	if stats.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", stats.Inserted)
	}
	if stats.Feeds != len(cat.Feeds) {
		t.Errorf("Feeds = %d, want %d", stats.Feeds, len(cat.Feeds))
	}
	if len(articles.created) != 2 {
		t.Fatalf("created %d articles, want 2", len(articles.created))
	}

	first := articles.created[0]
	if first.ID == "" {
		t.Error("article ID should be assigned")
	}
	if first.Source != feedURL {
		t.Errorf("Source = %q, want %q", first.Source, feedURL)
	}
	if len(first.Topics) == 0 {
		t.Error("Topics should be extracted from title and summary")
	}
	if got := links.links[first.ID]; got != "cat-"+cat.Slug {
		t.Errorf("article linked to %q, want %q", got, "cat-"+cat.Slug)
	}
}

func TestRefreshCategoryContinuesOnFeedError(t *testing.T) {
	reg := loadRegistry(t)
	cat := reg.Categories()[0]

	svc := newTestService(reg, &mockArticleRepo{}, &mockCategoryRepo{}, &mockLinkRepo{}, &mockFeedFetcher{err: errors.New("boom")}, nil)

	stats, err := svc.RefreshCategory(context.Background(), cat.Slug)
	if err != nil {
		t.Fatalf("RefreshCategory() error = %v", err)
	}
	if stats.FetchErrors != int64(len(cat.Feeds)) {
		t.Errorf("FetchErrors = %d, want %d", stats.FetchErrors, len(cat.Feeds))
	}
	if stats.Inserted != 0 {
		t.Errorf("Inserted = %d, want 0", stats.Inserted)
	}
}

func TestRefreshCategoryResyncsRegistryMetadataEachPass(t *testing.T) {
	reg := loadRegistry(t)
	cat := reg.Categories()[0]
	feedURL := cat.Feeds[0].URL

	cats := &mockCategoryRepo{}
	ff := &mockFeedFetcher{entries: map[string][]entity.Entry{
		feedURL: {
			{Link: "https://example.com/p1", Title: "One", Summary: "s", FeedURL: feedURL},
			{Link: "https://example.com/p2", Title: "Two", Summary: "s", FeedURL: feedURL},
		},
	}}
	svc := newTestService(reg, &mockArticleRepo{}, cats, &mockLinkRepo{}, ff, nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.RefreshCategory(context.Background(), cat.Slug); err != nil {
			t.Fatalf("RefreshCategory() pass %d error = %v", i+1, err)
		}
	}

	// One upsert per pass: the slug cache holds within a pass but must
	// not survive into the next one, or registry renames never land.
	if len(cats.ensured) != 2 {
		t.Errorf("Ensure called %d times across two passes, want 2", len(cats.ensured))
	}
}

func TestSaveEntriesRelinksDuplicates(t *testing.T) {
	reg := loadRegistry(t)
	cat := reg.Categories()[0]
	feedURL := cat.Feeds[0].URL

	// The stored article was seen before under a tracking-decorated URL.
	articles := &mockArticleRepo{existing: map[string]string{
		"https://example.com/a": "art-1",
	}}
	links := &mockLinkRepo{}
	svc := newTestService(reg, articles, &mockCategoryRepo{}, links, &mockFeedFetcher{}, nil)

	stats := &CrawlStats{}
	entries := []entity.Entry{
		{Link: "https://example.com/a?utm_campaign=x", Title: "Dup", Summary: "s", FeedURL: feedURL},
	}
	if err := svc.saveEntries(context.Background(), entries, cat.Slug, stats); err != nil {
		t.Fatalf("saveEntries() error = %v", err)
	}

	if stats.Duplicated != 1 || stats.Inserted != 0 {
		t.Errorf("stats = %+v, want 1 duplicated, 0 inserted", stats)
	}
	if len(articles.created) != 0 {
		t.Errorf("created %d articles for a duplicate", len(articles.created))
	}
	if len(links.otherDeleted) != 1 || links.otherDeleted[0] != "art-1" {
		t.Errorf("otherDeleted = %v, want [art-1]", links.otherDeleted)
	}
	if got := links.links["art-1"]; got != "cat-"+cat.Slug {
		t.Errorf("duplicate relinked to %q, want %q", got, "cat-"+cat.Slug)
	}
}

func TestSaveEntriesRegistryCategoryWins(t *testing.T) {
	reg := loadRegistry(t)
	cats := reg.Categories()
	if len(cats) < 2 {
		t.Skip("catalog has fewer than two categories")
	}
	owner := cats[1]
	feedURL := owner.Feeds[0].URL

	articles := &mockArticleRepo{}
	links := &mockLinkRepo{}
	svc := newTestService(reg, articles, &mockCategoryRepo{}, links, &mockFeedFetcher{}, nil)

	// Caller claims the entry belongs to cats[0]; its feed URL says otherwise.
	stats := &CrawlStats{}
	entries := []entity.Entry{
		{Link: "https://example.com/x", Title: "Cross-posted", Summary: "s", FeedURL: feedURL},
	}
	if err := svc.saveEntries(context.Background(), entries, cats[0].Slug, stats); err != nil {
		t.Fatalf("saveEntries() error = %v", err)
	}

	if len(articles.created) != 1 {
		t.Fatalf("created %d articles, want 1", len(articles.created))
	}
	if got := links.links[articles.created[0].ID]; got != "cat-"+owner.Slug {
		t.Errorf("linked to %q, want %q", got, "cat-"+owner.Slug)
	}
}

func TestSaveEntriesSkipsUntitledWithoutFetcher(t *testing.T) {
	reg := loadRegistry(t)
	cat := reg.Categories()[0]

	articles := &mockArticleRepo{}
	svc := newTestService(reg, articles, &mockCategoryRepo{}, &mockLinkRepo{}, &mockFeedFetcher{}, nil)

	stats := &CrawlStats{}
	entries := []entity.Entry{{Link: "https://example.com/no-title", FeedURL: cat.Feeds[0].URL}}
	if err := svc.saveEntries(context.Background(), entries, cat.Slug, stats); err != nil {
		t.Fatalf("saveEntries() error = %v", err)
	}
	if stats.Skipped != 1 || len(articles.created) != 0 {
		t.Errorf("stats = %+v, created = %d; want 1 skipped, 0 created", stats, len(articles.created))
	}
}

func TestSaveEntriesBackfillsFromContentFetch(t *testing.T) {
	reg := loadRegistry(t)
	cat := reg.Categories()[0]

	longBody := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	articles := &mockArticleRepo{}
	cf := &mockContentFetcher{text: "Extracted Headline\n" + longBody}
	svc := newTestService(reg, articles, &mockCategoryRepo{}, &mockLinkRepo{}, &mockFeedFetcher{}, cf)

	stats := &CrawlStats{}
	entries := []entity.Entry{{Link: "https://example.com/bare", FeedURL: cat.Feeds[0].URL}}
	if err := svc.saveEntries(context.Background(), entries, cat.Slug, stats); err != nil {
		t.Fatalf("saveEntries() error = %v", err)
	}
	if len(articles.created) != 1 {
		t.Fatalf("created %d articles, want 1", len(articles.created))
	}

	art := articles.created[0]
	if art.Title != "Extracted Headline" {
		t.Errorf("Title = %q, want extracted headline", art.Title)
	}
	if len([]rune(art.Summary)) > fallbackSummaryLength {
		t.Errorf("Summary length = %d, want at most %d", len([]rune(art.Summary)), fallbackSummaryLength)
	}
}

func TestSaveEntriesTruncatesLongFields(t *testing.T) {
	reg := loadRegistry(t)
	cat := reg.Categories()[0]

	articles := &mockArticleRepo{}
	svc := newTestService(reg, articles, &mockCategoryRepo{}, &mockLinkRepo{}, &mockFeedFetcher{}, nil)

	stats := &CrawlStats{}
	entries := []entity.Entry{{
		Link:    "https://example.com/long",
		Title:   strings.Repeat("t", maxTitleLength+50),
		Summary: strings.Repeat("s", maxSummaryLength+50),
		FeedURL: cat.Feeds[0].URL,
	}}
	if err := svc.saveEntries(context.Background(), entries, cat.Slug, stats); err != nil {
		t.Fatalf("saveEntries() error = %v", err)
	}

	art := articles.created[0]
	if len(art.Title) != maxTitleLength {
		t.Errorf("Title length = %d, want %d", len(art.Title), maxTitleLength)
	}
	if len(art.Summary) != maxSummaryLength {
		t.Errorf("Summary length = %d, want %d", len(art.Summary), maxSummaryLength)
	}
}

func TestRepairCategories(t *testing.T) {
	reg := loadRegistry(t)
	cat := reg.Categories()[0]

	articles := &mockArticleRepo{feedSources: map[string]string{
		"art-known":   cat.Feeds[0].URL,
		"art-unknown": "https://gone.example.com/feed",
	}}
	links := &mockLinkRepo{}
	svc := newTestService(reg, articles, &mockCategoryRepo{}, links, &mockFeedFetcher{}, nil)

	stats, err := svc.RepairCategories(context.Background(), false)
	if err != nil {
		t.Fatalf("RepairCategories() error = %v", err)
	}
	if stats.Repaired != 1 {
		t.Errorf("Repaired = %d, want 1", stats.Repaired)
	}
	if stats.SkippedUnknownSource != 1 {
		t.Errorf("SkippedUnknownSource = %d, want 1", stats.SkippedUnknownSource)
	}
	if got := links.links["art-known"]; got != "cat-"+cat.Slug {
		t.Errorf("repaired link = %q, want %q", got, "cat-"+cat.Slug)
	}
}

func TestRepairCategoriesDryRunWritesNothing(t *testing.T) {
	reg := loadRegistry(t)
	cat := reg.Categories()[0]

	articles := &mockArticleRepo{feedSources: map[string]string{
		"art-known": cat.Feeds[0].URL,
	}}
	links := &mockLinkRepo{}
	svc := newTestService(reg, articles, &mockCategoryRepo{}, links, &mockFeedFetcher{}, nil)

	stats, err := svc.RepairCategories(context.Background(), true)
	if err != nil {
		t.Fatalf("RepairCategories() error = %v", err)
	}
	if stats.Repaired != 1 {
		t.Errorf("Repaired = %d, want 1", stats.Repaired)
	}
	if len(links.links) != 0 || len(links.otherDeleted) != 0 {
		t.Error("dry run must not touch links")
	}
}

func TestPurgeWithoutImage(t *testing.T) {
	articles := &mockArticleRepo{purged: 7}
	svc := newTestService(loadRegistry(t), articles, &mockCategoryRepo{}, &mockLinkRepo{}, &mockFeedFetcher{}, nil)

	deleted, err := svc.PurgeWithoutImage(context.Background())
	if err != nil {
		t.Fatalf("PurgeWithoutImage() error = %v", err)
	}
	if deleted != 7 {
		t.Errorf("deleted = %d, want 7", deleted)
	}
}

func TestSyncCategoriesUpsertsAll(t *testing.T) {
	reg := loadRegistry(t)
	cats := &mockCategoryRepo{}
	svc := newTestService(reg, &mockArticleRepo{}, cats, &mockLinkRepo{}, &mockFeedFetcher{}, nil)

	if err := svc.SyncCategories(context.Background()); err != nil {
		t.Fatalf("SyncCategories() error = %v", err)
	}
	if len(cats.ensured) != len(reg.Categories()) {
		t.Errorf("ensured %d categories, want %d", len(cats.ensured), len(reg.Categories()))
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo", 3); got != "hél" {
		t.Errorf("truncateRunes = %q, want %q", got, "hél")
	}
	if got := truncateRunes("ok", 10); got != "ok" {
		t.Errorf("truncateRunes = %q, want %q", got, "ok")
	}
}
