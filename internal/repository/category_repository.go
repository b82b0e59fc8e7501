package repository

import (
	"context"

	"postpilot/internal/domain/entity"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]*entity.Category, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Category, error)
	// Ensure upserts a category row by slug and returns its ID, so the
	// catalog can be synced into the database at startup.
	Ensure(ctx context.Context, category *entity.Category) (string, error)
}

type ArticleCategoryRepository interface {
	// Link creates the article-category association if it does not
	// already exist. Safe to call repeatedly for the same pair.
	Link(ctx context.Context, articleID, categoryID string) error
	// DeleteOtherLinks removes every association of the article except
	// the one pointing at keepCategoryID, returning the number removed.
	DeleteOtherLinks(ctx context.Context, articleID, keepCategoryID string) (int64, error)
	// CategoryIDsFor returns the category IDs currently linked to the article.
	CategoryIDsFor(ctx context.Context, articleID string) ([]string, error)
}
