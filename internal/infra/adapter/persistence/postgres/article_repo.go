package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"postpilot/internal/domain/entity"
	"postpilot/internal/feeds"
	"postpilot/internal/repository"
)

type ArticleRepo struct {
	db           DBTX
	queryBuilder *ArticleQueryBuilder
}

func NewArticleRepo(db DBTX) repository.ArticleRepository {
	return &ArticleRepo{
		db:           db,
		queryBuilder: NewArticleQueryBuilder(),
	}
}

// scanArticle reads one row in articleColumns order.
func scanArticle(row interface{ Scan(...interface{}) error }) (*entity.Article, error) {
	var article entity.Article
	var topicsJSON []byte
	if err := row.Scan(
		&article.ID, &article.Source, &article.SourceName, &article.URL,
		&article.Title, &article.Summary, &topicsJSON,
		&article.ContentText, &article.ContentExtractedAt, &article.ContentExtractor,
		&article.ImageURL, &article.GenerationCount,
		&article.PublishedAt, &article.CreatedAt, &article.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(topicsJSON) > 0 {
		if err := json.Unmarshal(topicsJSON, &article.Topics); err != nil {
			return nil, fmt.Errorf("unmarshal topics: %w", err)
		}
	}
	return &article, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id string) (*entity.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles a").
		Where(sq.Eq{"a.id": id}).
		Where("a.deleted_at IS NULL").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("Get: build: %w", err)
	}

	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Get %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) GetByURL(ctx context.Context, normalizedURL string) (*entity.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles a").
		Where(sq.Eq{"a.url_normalized": normalizedURL}).
		Where("a.deleted_at IS NULL").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("GetByURL: build: %w", err)
	}

	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("GetByURL: %w", entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) List(ctx context.Context, filters repository.ArticleListFilters, offset, limit int) ([]*entity.Article, error) {
	query, args, err := repo.queryBuilder.Select(filters).
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("List: build: %w", err)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) Count(ctx context.Context, filters repository.ArticleListFilters) (int64, error) {
	query, args, err := repo.queryBuilder.Count(filters).ToSql()
	if err != nil {
		return 0, fmt.Errorf("Count: build: %w", err)
	}

	var count int64
	if err := repo.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

func (repo *ArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	topicsJSON, err := json.Marshal(article.Topics)
	if err != nil {
		return fmt.Errorf("Create: marshal topics: %w", err)
	}

	const query = `
INSERT INTO articles
       (id, source, source_name, url, url_normalized, title, summary, topics,
        content_text, content_extracted_at, content_extractor,
        image_url, generation_count, published_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = repo.db.ExecContext(ctx, query,
		article.ID, article.Source, article.SourceName,
		article.URL, feeds.NormalizeURL(article.URL),
		article.Title, article.Summary, topicsJSON,
		article.ContentText, article.ContentExtractedAt, article.ContentExtractor,
		article.ImageURL, article.GenerationCount,
		article.PublishedAt, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) Update(ctx context.Context, article *entity.Article) error {
	topicsJSON, err := json.Marshal(article.Topics)
	if err != nil {
		return fmt.Errorf("Update: marshal topics: %w", err)
	}

	const query = `
UPDATE articles SET
       source         = $1,
       source_name    = $2,
       url            = $3,
       url_normalized = $4,
       title          = $5,
       summary        = $6,
       topics         = $7,
       image_url      = $8,
       published_at   = $9,
       updated_at     = $10
WHERE id = $11 AND deleted_at IS NULL`
	res, err := repo.db.ExecContext(ctx, query,
		article.Source, article.SourceName,
		article.URL, feeds.NormalizeURL(article.URL),
		article.Title, article.Summary, topicsJSON,
		article.ImageURL, article.PublishedAt, article.UpdatedAt,
		article.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update %s: %w", article.ID, entity.ErrNotFound)
	}
	return nil
}

// ExistingByURL resolves a batch of normalized URLs to article IDs in
// one query, so the ingest pass avoids a per-entry existence probe.
func (repo *ArticleRepo) ExistingByURL(ctx context.Context, urls []string) (map[string]string, error) {
	if len(urls) == 0 {
		return map[string]string{}, nil
	}

	query, args, err := psql.Select("url_normalized", "id").
		From("articles").
		Where(sq.Eq{"url_normalized": urls}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ExistingByURL: build: %w", err)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistingByURL: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]string, len(urls))
	for rows.Next() {
		var url, id string
		if err := rows.Scan(&url, &id); err != nil {
			return nil, fmt.Errorf("ExistingByURL: Scan: %w", err)
		}
		result[url] = id
	}
	return result, rows.Err()
}

func (repo *ArticleRepo) UpdateContentCache(ctx context.Context, id string, cache repository.ContentCache) error {
	const query = `
UPDATE articles SET
       content_text         = $1,
       content_extractor    = $2,
       content_extracted_at = $3,
       updated_at           = $3
WHERE id = $4 AND deleted_at IS NULL`
	res, err := repo.db.ExecContext(ctx, query,
		cache.Text, cache.Extractor, cache.ExtractedAt, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateContentCache: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateContentCache %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) IncrementGenerationCount(ctx context.Context, id string) error {
	const query = `
UPDATE articles SET generation_count = generation_count + 1
WHERE id = $1 AND deleted_at IS NULL`
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("IncrementGenerationCount: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) SourceCounts(ctx context.Context, categorySlug string) (map[string]int64, error) {
	query, args, err := psql.Select("a.source_name", "COUNT(*)").
		From("articles a").
		Join("article_categories ac ON ac.article_id = a.id").
		Join("categories c ON c.id = ac.category_id").
		Where(sq.Eq{"c.slug": categorySlug}).
		Where("a.deleted_at IS NULL").
		GroupBy("a.source_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("SourceCounts: build: %w", err)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SourceCounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("SourceCounts: Scan: %w", err)
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

func (repo *ArticleRepo) MostGenerated(ctx context.Context, limit int) ([]*entity.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles a").
		Where("a.deleted_at IS NULL").
		Where("a.generation_count > 0").
		OrderBy("a.generation_count DESC", "a.published_at DESC NULLS LAST").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("MostGenerated: build: %w", err)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("MostGenerated: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("MostGenerated: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) FeedSources(ctx context.Context) (map[string]string, error) {
	const query = `SELECT id, source FROM articles WHERE deleted_at IS NULL`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("FeedSources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]string)
	for rows.Next() {
		var id, source string
		if err := rows.Scan(&id, &source); err != nil {
			return nil, fmt.Errorf("FeedSources: Scan: %w", err)
		}
		result[id] = source
	}
	return result, rows.Err()
}

func (repo *ArticleRepo) DeleteWithoutImage(ctx context.Context) (int64, error) {
	const query = `
UPDATE articles SET deleted_at = now()
WHERE image_url = '' AND deleted_at IS NULL`
	res, err := repo.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("DeleteWithoutImage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteWithoutImage: %w", err)
	}
	return n, nil
}
