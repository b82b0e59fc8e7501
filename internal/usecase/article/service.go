package article

import (
	"context"
	"fmt"
	"time"

	"postpilot/internal/domain/entity"
	"postpilot/internal/feeds"
	"postpilot/internal/repository"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	maxRanking     = 50
)

// ListQuery selects and pages a category listing. Zero values mean
// "no filter"; Page and PerPage are clamped to sane bounds.
type ListQuery struct {
	CategorySlug string
	Source       string
	Search       string
	From         *time.Time
	To           *time.Time
	WithImage    bool
	Page         int
	PerPage      int
}

// ListResult carries one page plus the total match count.
type ListResult struct {
	Articles []*entity.Article
	Total    int64
	Page     int
	PerPage  int
}

// Service answers read queries over ingested articles. Categories are
// validated against the static feed registry, the same source of truth
// the ingestion pipeline uses.
type Service struct {
	Registry     *feeds.Registry
	ArticleRepo  repository.ArticleRepository
	CategoryRepo repository.CategoryRepository
}

func NewService(registry *feeds.Registry, articleRepo repository.ArticleRepository, categoryRepo repository.CategoryRepository) *Service {
	return &Service{
		Registry:     registry,
		ArticleRepo:  articleRepo,
		CategoryRepo: categoryRepo,
	}
}

// Get retrieves one article by ID.
func (s *Service) Get(ctx context.Context, id string) (*entity.Article, error) {
	article, err := s.ArticleRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// List returns one page of articles matching the query, image-bearing
// articles first, then newest.
func (s *Service) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	if query.CategorySlug != "" {
		if _, ok := s.Registry.Category(query.CategorySlug); !ok {
			return nil, fmt.Errorf("list articles: %q: %w", query.CategorySlug, ErrUnknownCategory)
		}
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	filters := repository.ArticleListFilters{
		CategorySlug: query.CategorySlug,
		Source:       query.Source,
		Search:       query.Search,
		From:         query.From,
		To:           query.To,
		WithImage:    query.WithImage,
	}

	total, err := s.ArticleRepo.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	articles, err := s.ArticleRepo.List(ctx, filters, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	return &ListResult{
		Articles: articles,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	}, nil
}

// SourceCounts returns, per source name, how many live articles the
// category has.
func (s *Service) SourceCounts(ctx context.Context, categorySlug string) (map[string]int64, error) {
	if _, ok := s.Registry.Category(categorySlug); !ok {
		return nil, fmt.Errorf("source counts: %q: %w", categorySlug, ErrUnknownCategory)
	}
	counts, err := s.ArticleRepo.SourceCounts(ctx, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("source counts: %w", err)
	}
	return counts, nil
}

// MostGenerated lists the articles drafts were generated from most
// often. The limit is clamped to 1..50, defaulting to 10.
func (s *Service) MostGenerated(ctx context.Context, limit int) ([]*entity.Article, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > maxRanking {
		limit = maxRanking
	}
	articles, err := s.ArticleRepo.MostGenerated(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("most generated: %w", err)
	}
	return articles, nil
}

// Categories lists the categories currently present in the database.
func (s *Service) Categories(ctx context.Context) ([]*entity.Category, error) {
	categories, err := s.CategoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
