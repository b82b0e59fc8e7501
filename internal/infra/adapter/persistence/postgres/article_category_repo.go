package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"postpilot/internal/repository"
)

type ArticleCategoryRepo struct{ db DBTX }

func NewArticleCategoryRepo(db DBTX) repository.ArticleCategoryRepository {
	return &ArticleCategoryRepo{db: db}
}

// Link associates the article with the category. Linking an already
// linked pair is a no-op.
func (repo *ArticleCategoryRepo) Link(ctx context.Context, articleID, categoryID string) error {
	const query = `
INSERT INTO article_categories (id, article_id, category_id)
VALUES ($1, $2, $3)
ON CONFLICT (article_id, category_id) DO NOTHING`
	_, err := repo.db.ExecContext(ctx, query, uuid.NewString(), articleID, categoryID)
	if err != nil {
		return fmt.Errorf("Link: %w", err)
	}
	return nil
}

// DeleteOtherLinks drops every link of the article except the one to
// keepCategoryID, enforcing the one-category-per-article rule.
func (repo *ArticleCategoryRepo) DeleteOtherLinks(ctx context.Context, articleID, keepCategoryID string) (int64, error) {
	const query = `
DELETE FROM article_categories
WHERE article_id = $1 AND category_id <> $2`
	res, err := repo.db.ExecContext(ctx, query, articleID, keepCategoryID)
	if err != nil {
		return 0, fmt.Errorf("DeleteOtherLinks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteOtherLinks: %w", err)
	}
	return n, nil
}

func (repo *ArticleCategoryRepo) CategoryIDsFor(ctx context.Context, articleID string) ([]string, error) {
	const query = `
SELECT category_id FROM article_categories
WHERE article_id = $1`
	rows, err := repo.db.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, fmt.Errorf("CategoryIDsFor: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("CategoryIDsFor: Scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
