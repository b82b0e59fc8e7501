package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"postpilot/internal/domain/entity"
	"postpilot/internal/repository"
)

type CategoryRepo struct{ db DBTX }

func NewCategoryRepo(db DBTX) repository.CategoryRepository {
	return &CategoryRepo{db: db}
}

func (repo *CategoryRepo) List(ctx context.Context) ([]*entity.Category, error) {
	const query = `
SELECT id, slug, name, image_path
FROM categories
ORDER BY slug ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := make([]*entity.Category, 0, 20)
	for rows.Next() {
		var category entity.Category
		if err := rows.Scan(&category.ID, &category.Slug, &category.Name, &category.ImagePath); err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		categories = append(categories, &category)
	}
	return categories, rows.Err()
}

func (repo *CategoryRepo) GetBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	const query = `
SELECT id, slug, name, image_path
FROM categories
WHERE slug = $1
LIMIT 1`
	var category entity.Category
	err := repo.db.QueryRowContext(ctx, query, slug).
		Scan(&category.ID, &category.Slug, &category.Name, &category.ImagePath)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("GetBySlug %s: %w", slug, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetBySlug: %w", err)
	}
	return &category, nil
}

// Ensure upserts the category by slug. Name and image path follow the
// feed registry, so re-syncing an existing slug refreshes them in place.
func (repo *CategoryRepo) Ensure(ctx context.Context, category *entity.Category) (string, error) {
	id := category.ID
	if id == "" {
		id = uuid.NewString()
	}

	const query = `
INSERT INTO categories (id, slug, name, image_path)
VALUES ($1, $2, $3, $4)
ON CONFLICT (slug) DO UPDATE SET
       name       = EXCLUDED.name,
       image_path = EXCLUDED.image_path
RETURNING id`
	var got string
	err := repo.db.QueryRowContext(ctx, query, id, category.Slug, category.Name, category.ImagePath).Scan(&got)
	if err != nil {
		return "", fmt.Errorf("Ensure: %w", err)
	}
	return got, nil
}
