package generate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"postpilot/internal/domain/entity"
	"postpilot/internal/infra/fetcher"
	"postpilot/internal/repository"
)

type fakeUserRepo struct {
	repository.UserRepository

	remaining int
	reserved  int
	refunded  int
}

func (f *fakeUserRepo) ReserveQuota(_ context.Context, _ string, _ entity.Provider, units int) error {
	if f.remaining < units {
		return repository.ErrQuotaExceeded
	}
	f.remaining -= units
	f.reserved += units
	return nil
}

func (f *fakeUserRepo) RefundQuota(_ context.Context, _ string, _ entity.Provider, units int) error {
	f.remaining += units
	f.refunded += units
	return nil
}

type fakeArticleRepo struct {
	repository.ArticleRepository

	article     *entity.Article
	cached      *repository.ContentCache
	incremented int
}

func (f *fakeArticleRepo) Get(_ context.Context, id string) (*entity.Article, error) {
	if f.article != nil && f.article.ID == id {
		return f.article, nil
	}
	return nil, entity.ErrNotFound
}

func (f *fakeArticleRepo) GetByURL(_ context.Context, normalizedURL string) (*entity.Article, error) {
	if f.article != nil && f.article.URL == normalizedURL {
		return f.article, nil
	}
	return nil, entity.ErrNotFound
}

func (f *fakeArticleRepo) UpdateContentCache(_ context.Context, _ string, cache repository.ContentCache) error {
	f.cached = &cache
	return nil
}

func (f *fakeArticleRepo) IncrementGenerationCount(_ context.Context, _ string) error {
	f.incremented++
	return nil
}

type fakeGenerationRepo struct {
	repository.GenerationRepository

	created   []*entity.Generation
	createErr error
}

func (f *fakeGenerationRepo) Create(_ context.Context, gen *entity.Generation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, gen)
	return nil
}

type fakeProvider struct {
	name       entity.Provider
	facts      []string
	factsErr   error
	draft      string
	draftErr   error
	factsCalls int
	fromFacts  int
	fromSource int
}

func (f *fakeProvider) Name() entity.Provider { return f.name }
func (f *fakeProvider) Model() string         { return "test-model-1" }

func (f *fakeProvider) ExtractFacts(_ context.Context, _ string) ([]string, error) {
	f.factsCalls++
	return f.facts, f.factsErr
}

func (f *fakeProvider) DraftFromFacts(_ context.Context, _ []string, _ DraftRequest) (string, error) {
	f.fromFacts++
	return f.draft, f.draftErr
}

func (f *fakeProvider) DraftFromSource(_ context.Context, _ string, _ DraftRequest) (string, error) {
	f.fromSource++
	return f.draft, f.draftErr
}

type fakeContentFetcher struct {
	text string
	err  error
}

func (f *fakeContentFetcher) FetchContent(_ context.Context, _ string) (fetcher.Result, error) {
	if f.err != nil {
		return fetcher.Result{}, f.err
	}
	return fetcher.Result{Text: f.text, Extractor: "readability", ExtractedAt: time.Now()}, nil
}

func (f *fakeContentFetcher) IsFresh(extractedAt time.Time) bool {
	return time.Since(extractedAt) < 168*time.Hour
}

func newTestService(users *fakeUserRepo, articles *fakeArticleRepo, gens *fakeGenerationRepo, p *fakeProvider, cf ContentFetcher) *Service {
	return NewService(users, articles, gens, map[entity.Provider]Provider{p.name: p}, cf, nil)
}

func textRequest(variants int) Request {
	return Request{
		UserID:   "user-1",
		Provider: entity.ProviderAnthropic,
		Text:     "We migrated the billing system to event sourcing last quarter.",
		Variants: variants,
	}
}

func TestGeneratePersistsDraft(t *testing.T) {
	users := &fakeUserRepo{remaining: 3}
	gens := &fakeGenerationRepo{}
	p := &fakeProvider{name: entity.ProviderAnthropic, facts: []string{"fact one"}, draft: "Why did billing break?\n\nWe fixed it.\n\nThoughts?"}
	svc := newTestService(users, &fakeArticleRepo{}, gens, p, nil)

	result, err := svc.Generate(context.Background(), textRequest(1))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Drafts) != 1 {
		t.Fatalf("drafts = %d, want 1", len(result.Drafts))
	}

	gen := result.Drafts[0]
	if gen.Model != "test-model-1" {
		t.Errorf("Model = %q", gen.Model)
	}
	if gen.Score <= 0 {
		t.Errorf("Score = %d, want > 0", gen.Score)
	}
	if gen.ArticleID != "" {
		t.Errorf("ArticleID = %q, want empty for pasted text", gen.ArticleID)
	}
	if users.reserved != 1 || users.refunded != 0 {
		t.Errorf("reserved=%d refunded=%d, want 1/0", users.reserved, users.refunded)
	}
	if p.fromFacts != 1 || p.fromSource != 0 {
		t.Errorf("fromFacts=%d fromSource=%d, want two-pass path", p.fromFacts, p.fromSource)
	}
}

func TestGenerateQuotaExceededNotCharged(t *testing.T) {
	users := &fakeUserRepo{remaining: 0}
	p := &fakeProvider{name: entity.ProviderAnthropic, draft: "x"}
	svc := newTestService(users, &fakeArticleRepo{}, &fakeGenerationRepo{}, p, nil)

	_, err := svc.Generate(context.Background(), textRequest(1))
	if !errors.Is(err, repository.ErrQuotaExceeded) {
		t.Fatalf("Generate() error = %v, want ErrQuotaExceeded", err)
	}
	if users.refunded != 0 {
		t.Errorf("refunded = %d, want 0 (nothing was charged)", users.refunded)
	}
	if p.factsCalls != 0 {
		t.Error("provider must not be called without a reservation")
	}
}

func TestGenerateInsufficientSourceRefundsAndNeverPersists(t *testing.T) {
	users := &fakeUserRepo{remaining: 3}
	gens := &fakeGenerationRepo{}
	p := &fakeProvider{name: entity.ProviderAnthropic, facts: []string{"f"}, draft: InsufficientSourceSentinel}
	svc := newTestService(users, &fakeArticleRepo{}, gens, p, nil)

	_, err := svc.Generate(context.Background(), textRequest(1))
	if !errors.Is(err, ErrInsufficientSource) {
		t.Fatalf("Generate() error = %v, want ErrInsufficientSource", err)
	}
	if len(gens.created) != 0 {
		t.Error("sentinel draft must never be persisted")
	}
	if users.reserved != 1 || users.refunded != 1 {
		t.Errorf("reserved=%d refunded=%d, want net-zero charge", users.reserved, users.refunded)
	}
	if users.remaining != 3 {
		t.Errorf("remaining = %d, want 3 after refund", users.remaining)
	}
}

func TestGenerateNoSourceRefunds(t *testing.T) {
	users := &fakeUserRepo{remaining: 1}
	p := &fakeProvider{name: entity.ProviderAnthropic, draft: "x"}
	svc := newTestService(users, &fakeArticleRepo{}, &fakeGenerationRepo{}, p, nil)

	_, err := svc.Generate(context.Background(), Request{UserID: "u", Provider: entity.ProviderAnthropic})
	if !errors.Is(err, ErrNoSource) {
		t.Fatalf("Generate() error = %v, want ErrNoSource", err)
	}
	if users.refunded != 1 {
		t.Errorf("refunded = %d, want 1", users.refunded)
	}
}

func TestGeneratePersistFailureRefunds(t *testing.T) {
	users := &fakeUserRepo{remaining: 1}
	gens := &fakeGenerationRepo{createErr: fmt.Errorf("db down")}
	p := &fakeProvider{name: entity.ProviderAnthropic, facts: []string{"f"}, draft: "A fine draft."}
	svc := newTestService(users, &fakeArticleRepo{}, gens, p, nil)

	_, err := svc.Generate(context.Background(), textRequest(1))
	if err == nil {
		t.Fatal("Generate() should fail when persistence fails")
	}
	if users.refunded != 1 {
		t.Errorf("refunded = %d, want 1", users.refunded)
	}
}

func TestGenerateFallsBackToSingleShot(t *testing.T) {
	users := &fakeUserRepo{remaining: 1}
	p := &fakeProvider{name: entity.ProviderAnthropic, facts: nil, draft: "Single shot draft."}
	svc := newTestService(users, &fakeArticleRepo{}, &fakeGenerationRepo{}, p, nil)

	_, err := svc.Generate(context.Background(), textRequest(1))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if p.fromSource != 1 || p.fromFacts != 0 {
		t.Errorf("fromSource=%d fromFacts=%d, want single-shot fallback", p.fromSource, p.fromFacts)
	}
}

func TestGenerateExtraVariantsDebitSeparately(t *testing.T) {
	users := &fakeUserRepo{remaining: 5}
	gens := &fakeGenerationRepo{}
	p := &fakeProvider{name: entity.ProviderAnthropic, facts: []string{"f"}, draft: "Draft text."}
	svc := newTestService(users, &fakeArticleRepo{}, gens, p, nil)

	result, err := svc.Generate(context.Background(), textRequest(3))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Drafts) != 3 {
		t.Errorf("drafts = %d, want 3", len(result.Drafts))
	}
	if users.reserved != 3 {
		t.Errorf("reserved = %d, want 3 (one per variant)", users.reserved)
	}
}

func TestGenerateExtraVariantStopsAtQuota(t *testing.T) {
	users := &fakeUserRepo{remaining: 1}
	gens := &fakeGenerationRepo{}
	p := &fakeProvider{name: entity.ProviderAnthropic, facts: []string{"f"}, draft: "Draft text."}
	svc := newTestService(users, &fakeArticleRepo{}, gens, p, nil)

	result, err := svc.Generate(context.Background(), textRequest(3))
	if err != nil {
		t.Fatalf("first draft should still succeed, got %v", err)
	}
	if len(result.Drafts) != 1 {
		t.Errorf("drafts = %d, want 1 when quota runs out", len(result.Drafts))
	}
	if users.remaining != 0 {
		t.Errorf("remaining = %d, want 0", users.remaining)
	}
}

func TestGenerateUsesFreshCachedContent(t *testing.T) {
	extractedAt := time.Now().Add(-time.Hour)
	article := &entity.Article{
		ID:                 "art-1",
		URL:                "https://example.com/post",
		Title:              "Title",
		Summary:            "Summary",
		Topics:             map[string]float64{"billing": 0.1},
		ContentText:        "Cached full text of the article body.",
		ContentExtractedAt: &extractedAt,
	}
	users := &fakeUserRepo{remaining: 1}
	articles := &fakeArticleRepo{article: article}
	gens := &fakeGenerationRepo{}
	p := &fakeProvider{name: entity.ProviderAnthropic, facts: []string{"f"}, draft: "Draft."}
	cf := &fakeContentFetcher{err: fmt.Errorf("network should not be hit")}
	svc := newTestService(users, articles, gens, p, cf)

	result, err := svc.Generate(context.Background(), Request{
		UserID:    "u",
		Provider:  entity.ProviderAnthropic,
		ArticleID: "art-1",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Drafts[0].ArticleID != "art-1" {
		t.Errorf("ArticleID = %q", result.Drafts[0].ArticleID)
	}
	if articles.incremented != 1 {
		t.Errorf("generation count incremented %d times, want 1", articles.incremented)
	}
}

func TestGenerateStaleCacheRefetchesAndStores(t *testing.T) {
	stale := time.Now().Add(-30 * 24 * time.Hour)
	article := &entity.Article{
		ID:                 "art-2",
		URL:                "https://example.com/old",
		Title:              "Title",
		Summary:            "Summary",
		ContentText:        "old cached text",
		ContentExtractedAt: &stale,
	}
	users := &fakeUserRepo{remaining: 1}
	articles := &fakeArticleRepo{article: article}
	p := &fakeProvider{name: entity.ProviderAnthropic, facts: []string{"f"}, draft: "Draft."}
	cf := &fakeContentFetcher{text: "freshly extracted body"}
	svc := newTestService(users, articles, &fakeGenerationRepo{}, p, cf)

	_, err := svc.Generate(context.Background(), Request{
		UserID:    "u",
		Provider:  entity.ProviderAnthropic,
		ArticleID: "art-2",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if articles.cached == nil || articles.cached.Text != "freshly extracted body" {
		t.Errorf("content cache not refreshed: %+v", articles.cached)
	}
}

func TestGenerateExtractionFailureFallsBackToSummary(t *testing.T) {
	article := &entity.Article{
		ID:      "art-3",
		URL:     "https://example.com/broken",
		Title:   "A headline",
		Summary: "A summary body",
	}
	users := &fakeUserRepo{remaining: 1}
	articles := &fakeArticleRepo{article: article}
	p := &fakeProvider{name: entity.ProviderAnthropic, facts: []string{"f"}, draft: "Draft."}
	cf := &fakeContentFetcher{err: fmt.Errorf("extraction broke")}
	svc := newTestService(users, articles, &fakeGenerationRepo{}, p, cf)

	result, err := svc.Generate(context.Background(), Request{
		UserID:    "u",
		Provider:  entity.ProviderAnthropic,
		ArticleID: "art-3",
	})
	if err != nil {
		t.Fatalf("legacy fallback should succeed, got %v", err)
	}
	if len(result.Drafts) != 1 {
		t.Errorf("drafts = %d, want 1", len(result.Drafts))
	}
}

// lockingUserRepo serializes quota movements behind a mutex the way
// the real repository serializes them behind a row lock.
type lockingUserRepo struct {
	repository.UserRepository

	mu        sync.Mutex
	remaining int
	used      int
}

func (f *lockingUserRepo) ReserveQuota(_ context.Context, _ string, _ entity.Provider, units int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remaining < units {
		return repository.ErrQuotaExceeded
	}
	f.remaining -= units
	f.used += units
	return nil
}

func (f *lockingUserRepo) RefundQuota(_ context.Context, _ string, _ entity.Provider, units int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remaining += units
	f.used -= units
	return nil
}

type syncGenerationRepo struct {
	repository.GenerationRepository

	mu      sync.Mutex
	created []*entity.Generation
}

func (f *syncGenerationRepo) Create(_ context.Context, gen *entity.Generation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, gen)
	return nil
}

type staticProvider struct{ name entity.Provider }

func (p staticProvider) Name() entity.Provider { return p.name }
func (p staticProvider) Model() string         { return "test-model-1" }

func (p staticProvider) ExtractFacts(_ context.Context, _ string) ([]string, error) {
	return []string{"fact"}, nil
}

func (p staticProvider) DraftFromFacts(_ context.Context, _ []string, _ DraftRequest) (string, error) {
	return "A draft grounded in the facts.", nil
}

func (p staticProvider) DraftFromSource(_ context.Context, _ string, _ DraftRequest) (string, error) {
	return "A draft grounded in the source.", nil
}

func TestGenerateConcurrentRequestsLastUnit(t *testing.T) {
	users := &lockingUserRepo{remaining: 1}
	gens := &syncGenerationRepo{}
	p := staticProvider{name: entity.ProviderAnthropic}
	svc := NewService(users, &fakeArticleRepo{}, gens, map[entity.Provider]Provider{p.name: p}, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Generate(context.Background(), textRequest(1))
		}(i)
	}
	wg.Wait()

	var succeeded, exceeded int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, repository.ErrQuotaExceeded):
			exceeded++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || exceeded != 1 {
		t.Fatalf("succeeded=%d exceeded=%d, want exactly one of each", succeeded, exceeded)
	}
	if users.used != 1 || users.remaining != 0 {
		t.Errorf("used=%d remaining=%d, want 1/0 (exactly one unit charged)", users.used, users.remaining)
	}
	if len(gens.created) != 1 {
		t.Errorf("persisted %d drafts, want 1", len(gens.created))
	}
}

func TestGenerateRejectsUnknownKnob(t *testing.T) {
	users := &fakeUserRepo{remaining: 1}
	p := &fakeProvider{name: entity.ProviderAnthropic, draft: "x"}
	svc := newTestService(users, &fakeArticleRepo{}, &fakeGenerationRepo{}, p, nil)

	req := textRequest(1)
	req.Knobs.Persona = "the-wizard"
	_, err := svc.Generate(context.Background(), req)
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("Generate() error = %v, want ErrInvalidOption", err)
	}
	if users.reserved != 0 {
		t.Error("invalid knobs must be rejected before any reservation")
	}
}
