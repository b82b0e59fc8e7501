package repository

import (
	"context"

	"postpilot/internal/domain/entity"
)

type GenerationRepository interface {
	Create(ctx context.Context, gen *entity.Generation) error
	Get(ctx context.Context, id string) (*entity.Generation, error)
	// ListByUser retrieves a user's generations ordered by created_at
	// DESC, excluding soft-deleted rows.
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*entity.Generation, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
}
