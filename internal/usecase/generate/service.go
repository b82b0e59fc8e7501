// Package generate implements the quota-gated draft generation
// workflow: reserve a quota unit under a row lock, resolve the source
// text (pasted text, article URL or uploaded file), run the two-pass
// facts-then-draft provider calls, score and persist the result, and
// refund the reservation on every failure branch.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"postpilot/internal/domain/entity"
	"postpilot/internal/feeds"
	"postpilot/internal/infra/fetcher"
	"postpilot/internal/observability/metrics"
	"postpilot/internal/repository"
)

const (
	// maxSourceChars caps the resolved source before it reaches a
	// provider, using head+middle+tail truncation for long inputs.
	maxSourceChars = 8000

	maxVariants = 3
)

// InsufficientSourceSentinel is the exact string a provider returns in
// place of a draft when the source cannot ground a post. It is matched
// case-sensitively and must never be persisted.
const InsufficientSourceSentinel = "INSUFFICIENT_SOURCE"

// DraftRequest carries the resolved knobs and keywords into a provider.
type DraftRequest struct {
	HookType string
	Persona  string
	Tone     string
	Goal     string
	Length   string
	Ending   string
	Keywords []string
}

// Provider is one LLM backend. ExtractFacts and DraftFromFacts form
// the two-pass path; DraftFromSource is the single-shot fallback used
// when fact extraction yields nothing.
type Provider interface {
	Name() entity.Provider
	Model() string
	ExtractFacts(ctx context.Context, sourceText string) ([]string, error)
	DraftFromFacts(ctx context.Context, facts []string, req DraftRequest) (string, error)
	DraftFromSource(ctx context.Context, sourceText string, req DraftRequest) (string, error)
}

// ContentFetcher extracts readable text from an article URL and
// reports whether a cached extraction is still fresh.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (fetcher.Result, error)
	IsFresh(extractedAt time.Time) bool
}

// FileExtractor turns an uploaded file into plain text.
type FileExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// Request is one generation request. Exactly one of Text, ArticleID,
// URL or FileData should be set; when several are, resolution follows
// the precedence text > article/url > file.
type Request struct {
	UserID    string
	Provider  entity.Provider
	Text      string
	ArticleID string
	URL       string
	FileName  string
	FileData  []byte
	Variants  int // 1..3, zero means 1
	Knobs     Knobs
}

// Result carries the persisted drafts, best first.
type Result struct {
	Drafts []*entity.Generation
}

// Service orchestrates generation requests.
type Service struct {
	UserRepo       repository.UserRepository
	ArticleRepo    repository.ArticleRepository
	GenerationRepo repository.GenerationRepository
	Providers      map[entity.Provider]Provider
	ContentFetcher ContentFetcher // optional, nil disables URL sources
	FileExtractor  FileExtractor  // optional, nil disables file sources
	Normalizer     feeds.URLNormalizer

	now   func() time.Time
	newID func() string
}

// NewService creates a generation Service.
func NewService(
	userRepo repository.UserRepository,
	articleRepo repository.ArticleRepository,
	generationRepo repository.GenerationRepository,
	providers map[entity.Provider]Provider,
	contentFetcher ContentFetcher,
	fileExtractor FileExtractor,
) *Service {
	return &Service{
		UserRepo:       userRepo,
		ArticleRepo:    articleRepo,
		GenerationRepo: generationRepo,
		Providers:      providers,
		ContentFetcher: contentFetcher,
		FileExtractor:  fileExtractor,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
}

// Generate runs one request end to end. The returned error always
// means the caller was not charged: quota rejections happen before any
// reservation, and every later failure refunds the reserved unit.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Knobs.Validate(); err != nil {
		return nil, err
	}
	knobs := req.Knobs.Normalize()

	provider, ok := s.Providers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("no provider configured for %q", req.Provider)
	}

	variants := req.Variants
	if variants < 1 {
		variants = 1
	}
	if variants > maxVariants {
		variants = maxVariants
	}

	// The reservation covers exactly one unit; extra variants debit
	// separately after the first draft succeeds.
	if err := s.reserve(ctx, req.UserID, req.Provider); err != nil {
		return nil, err
	}

	source, article, err := s.resolveSource(ctx, req)
	if err != nil {
		s.refund(ctx, req.UserID, req.Provider, 1)
		return nil, err
	}

	draftReq := DraftRequest{
		HookType: knobs.HookType,
		Persona:  knobs.Persona,
		Tone:     knobs.Tone,
		Goal:     knobs.Goal,
		Length:   knobs.Length,
		Ending:   knobs.Ending,
	}
	var keywords map[string]float64
	if article != nil {
		keywords = article.Topics
		for k := range article.Topics {
			draftReq.Keywords = append(draftReq.Keywords, k)
		}
	}

	first, err := s.generateOne(ctx, provider, source, draftReq, keywords, knobs, req.UserID, article)
	if err != nil {
		s.refund(ctx, req.UserID, req.Provider, 1)
		return nil, err
	}

	result := &Result{Drafts: []*entity.Generation{first}}

	if article != nil {
		if err := s.ArticleRepo.IncrementGenerationCount(ctx, article.ID); err != nil {
			slog.Warn("failed to bump article generation count",
				slog.String("article_id", article.ID),
				slog.Any("error", err))
		}
	}

	for i := 1; i < variants; i++ {
		if err := s.reserve(ctx, req.UserID, req.Provider); err != nil {
			slog.Warn("stopping extra variants",
				slog.String("user_id", req.UserID),
				slog.Int("produced", len(result.Drafts)),
				slog.Any("error", err))
			break
		}
		gen, err := s.generateOne(ctx, provider, source, draftReq, keywords, knobs, req.UserID, article)
		if err != nil {
			s.refund(ctx, req.UserID, req.Provider, 1)
			slog.Warn("extra variant failed",
				slog.String("user_id", req.UserID),
				slog.Any("error", err))
			break
		}
		result.Drafts = append(result.Drafts, gen)
	}

	return result, nil
}

// History lists a user's persisted generations, newest first.
func (s *Service) History(ctx context.Context, userID string, offset, limit int) ([]*entity.Generation, int64, error) {
	gens, err := s.GenerationRepo.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list generations: %w", err)
	}
	total, err := s.GenerationRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("count generations: %w", err)
	}
	return gens, total, nil
}

// reserve debits one quota unit, translating exhaustion into a
// provider-specific message so clients can suggest switching.
func (s *Service) reserve(ctx context.Context, userID string, provider entity.Provider) error {
	err := s.UserRepo.ReserveQuota(ctx, userID, provider, 1)
	if err == nil {
		metrics.RecordQuotaReservation(string(provider), "reserved")
		return nil
	}
	if errors.Is(err, repository.ErrQuotaExceeded) {
		metrics.RecordQuotaReservation(string(provider), "exceeded")
		other := entity.ProviderAnthropic
		if provider == entity.ProviderAnthropic {
			other = entity.ProviderOpenAI
		}
		return fmt.Errorf("%w for %s this month, try %s or wait for renewal", err, provider, other)
	}
	return fmt.Errorf("reserve quota: %w", err)
}

// refund hands a reservation back. Best effort: failures are logged
// and swallowed so a refund problem never masks the original error.
func (s *Service) refund(ctx context.Context, userID string, provider entity.Provider, units int) {
	if err := s.UserRepo.RefundQuota(context.WithoutCancel(ctx), userID, provider, units); err != nil {
		slog.Error("quota refund failed",
			slog.String("user_id", userID),
			slog.String("provider", string(provider)),
			slog.Int("units", units),
			slog.Any("error", err))
		return
	}
	metrics.RecordQuotaRefund(string(provider), units)
}

// generateOne produces, scores and persists a single draft.
func (s *Service) generateOne(
	ctx context.Context,
	provider Provider,
	source string,
	draftReq DraftRequest,
	keywords map[string]float64,
	knobs Knobs,
	userID string,
	article *entity.Article,
) (*entity.Generation, error) {
	name := string(provider.Name())
	start := s.now()

	draft, err := s.draft(ctx, provider, source, draftReq)
	duration := time.Since(start)
	if err != nil {
		status := "failure"
		if errors.Is(err, ErrInsufficientSource) {
			status = "rejected"
		}
		metrics.RecordGeneration(name, status, duration)
		return nil, err
	}
	metrics.RecordGeneration(name, "success", duration)

	score, breakdown := ScoreText(draft, keywords)
	metrics.RecordGenerationScore(score)

	now := s.now()
	gen := &entity.Generation{
		ID:             s.newID(),
		UserID:         userID,
		Model:          provider.Model(),
		Prompt:         knobs.Summary(),
		DraftText:      draft,
		Persona:        knobs.Persona,
		Tone:           knobs.Tone,
		Score:          score,
		ScoreBreakdown: breakdown,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if article != nil {
		gen.ArticleID = article.ID
	}
	if err := s.GenerationRepo.Create(ctx, gen); err != nil {
		return nil, fmt.Errorf("draft was generated but could not be saved, quota refunded: %w", err)
	}
	return gen, nil
}

// draft runs the two-pass provider flow: facts first, then a draft
// grounded strictly in them. Empty or failed fact extraction falls
// back to a single-shot call on the raw source.
func (s *Service) draft(ctx context.Context, provider Provider, source string, req DraftRequest) (string, error) {
	facts, err := provider.ExtractFacts(ctx, source)
	if err != nil {
		slog.Warn("fact extraction failed, falling back to single-shot",
			slog.String("provider", string(provider.Name())),
			slog.Any("error", err))
	}

	var draft string
	if err != nil || len(facts) == 0 {
		draft, err = provider.DraftFromSource(ctx, source, req)
	} else {
		draft, err = provider.DraftFromFacts(ctx, facts, req)
	}
	if err != nil {
		return "", fmt.Errorf("provider draft: %w", err)
	}
	if isInsufficientSource(draft) {
		return "", ErrInsufficientSource
	}
	if strings.TrimSpace(draft) == "" {
		return "", fmt.Errorf("provider draft: %w", ErrInsufficientSource)
	}
	return draft, nil
}

func isInsufficientSource(draft string) bool {
	return strings.Contains(draft, InsufficientSourceSentinel)
}

// resolveSource turns the request into source text, in strict
// precedence: pasted text, then article/url, then uploaded file.
func (s *Service) resolveSource(ctx context.Context, req Request) (string, *entity.Article, error) {
	switch {
	case strings.TrimSpace(req.Text) != "":
		return capSource(req.Text), nil, nil

	case req.ArticleID != "" || req.URL != "":
		return s.resolveArticleSource(ctx, req)

	case len(req.FileData) > 0:
		if s.FileExtractor == nil {
			return "", nil, fmt.Errorf("%w: file uploads are not enabled", ErrSourceResolution)
		}
		text, err := s.FileExtractor.Extract(ctx, req.FileName, req.FileData)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", ErrSourceResolution, req.FileName, err)
		}
		if strings.TrimSpace(text) == "" {
			return "", nil, fmt.Errorf("%w: no text in %s", ErrSourceResolution, req.FileName)
		}
		return capSource(text), nil, nil

	default:
		return "", nil, ErrNoSource
	}
}

// resolveArticleSource prefers the cached full-text extraction when it
// is still fresh, re-extracts live otherwise, and falls back to the
// stored title+summary when extraction fails.
func (s *Service) resolveArticleSource(ctx context.Context, req Request) (string, *entity.Article, error) {
	var (
		article *entity.Article
		err     error
	)
	if req.ArticleID != "" {
		article, err = s.ArticleRepo.Get(ctx, req.ArticleID)
		if err != nil {
			return "", nil, fmt.Errorf("%w: article %s: %v", ErrSourceResolution, req.ArticleID, err)
		}
	} else {
		article, err = s.ArticleRepo.GetByURL(ctx, s.Normalizer.Normalize(req.URL))
		if err != nil && !errors.Is(err, entity.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: lookup %s: %v", ErrSourceResolution, req.URL, err)
		}
	}

	if article == nil {
		// Unknown URL: live extraction is the only option.
		if s.ContentFetcher == nil {
			return "", nil, fmt.Errorf("%w: URL sources are not enabled", ErrSourceResolution)
		}
		result, err := s.ContentFetcher.FetchContent(ctx, req.URL)
		if err != nil {
			return "", nil, fmt.Errorf("%w: extract %s: %v", ErrSourceResolution, req.URL, err)
		}
		return capSource(result.Text), nil, nil
	}

	if article.ContentText != "" && article.ContentExtractedAt != nil &&
		s.ContentFetcher != nil && s.ContentFetcher.IsFresh(*article.ContentExtractedAt) {
		metrics.RecordContentFetchSkipped()
		return capSource(article.ContentText), article, nil
	}

	if s.ContentFetcher != nil {
		result, err := s.ContentFetcher.FetchContent(ctx, article.URL)
		if err == nil && strings.TrimSpace(result.Text) != "" {
			cache := repository.ContentCache{
				Text:        result.Text,
				Extractor:   result.Extractor,
				ExtractedAt: result.ExtractedAt,
			}
			if err := s.ArticleRepo.UpdateContentCache(ctx, article.ID, cache); err != nil {
				slog.Warn("failed to cache extracted content",
					slog.String("article_id", article.ID),
					slog.Any("error", err))
			}
			return capSource(result.Text), article, nil
		}
		slog.Warn("live extraction failed, using title+summary",
			slog.String("article_id", article.ID),
			slog.Any("error", err))
	}

	legacy := strings.TrimSpace(article.Title + "\n\n" + article.Summary)
	if legacy == "" {
		return "", nil, fmt.Errorf("%w: article %s has no usable text", ErrSourceResolution, article.ID)
	}
	return capSource(legacy), article, nil
}

func capSource(text string) string {
	return fetcher.SmartTruncate(strings.TrimSpace(text), maxSourceChars)
}
