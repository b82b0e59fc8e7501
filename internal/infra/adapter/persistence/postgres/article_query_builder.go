package postgres

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"postpilot/internal/repository"
)

// articleColumns is the full column list scanned by scanArticle, aliased
// to the articles table as "a".
var articleColumns = []string{
	"a.id", "a.source", "a.source_name", "a.url", "a.title", "a.summary",
	"a.topics", "a.content_text", "a.content_extracted_at", "a.content_extractor",
	"a.image_url", "a.generation_count", "a.published_at", "a.created_at", "a.updated_at",
}

// ArticleQueryBuilder translates ArticleListFilters into squirrel
// builders. It is shared by List and Count so both always agree on
// which rows match.
type ArticleQueryBuilder struct{}

func NewArticleQueryBuilder() *ArticleQueryBuilder {
	return &ArticleQueryBuilder{}
}

// Select returns a builder for the full article column list with the
// filters applied, ordered image-bearing articles first, then newest.
func (qb *ArticleQueryBuilder) Select(filters repository.ArticleListFilters) sq.SelectBuilder {
	b := psql.Select(articleColumns...).From("articles a")
	b = qb.apply(b, filters)
	return b.OrderBy("(a.image_url <> '') DESC", "a.published_at DESC NULLS LAST", "a.created_at DESC")
}

// Count returns a builder counting the rows the same filters match.
func (qb *ArticleQueryBuilder) Count(filters repository.ArticleListFilters) sq.SelectBuilder {
	return qb.apply(psql.Select("COUNT(*)").From("articles a"), filters)
}

func (qb *ArticleQueryBuilder) apply(b sq.SelectBuilder, filters repository.ArticleListFilters) sq.SelectBuilder {
	b = b.Where("a.deleted_at IS NULL")

	if filters.CategorySlug != "" {
		b = b.Join("article_categories ac ON ac.article_id = a.id").
			Join("categories c ON c.id = ac.category_id").
			Where(sq.Eq{"c.slug": filters.CategorySlug})
	}
	if filters.Source != "" {
		b = b.Where(sq.Eq{"a.source_name": filters.Source})
	}
	if filters.Search != "" {
		pattern := "%" + escapeLike(filters.Search) + "%"
		b = b.Where(sq.Or{
			sq.ILike{"a.title": pattern},
			sq.ILike{"a.summary": pattern},
		})
	}
	if filters.From != nil {
		b = b.Where(sq.GtOrEq{"a.published_at": *filters.From})
	}
	if filters.To != nil {
		b = b.Where(sq.LtOrEq{"a.published_at": *filters.To})
	}
	if filters.WithImage {
		b = b.Where("a.image_url <> ''")
	}
	return b
}

// escapeLike neutralizes LIKE metacharacters in user-supplied search
// terms so they match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
