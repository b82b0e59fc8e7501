package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"postpilot/internal/domain/entity"
	"postpilot/internal/repository"
)

type GenerationRepo struct{ db DBTX }

func NewGenerationRepo(db DBTX) repository.GenerationRepository {
	return &GenerationRepo{db: db}
}

const generationColumns = `id, user_id, article_id, model, prompt, draft_text, persona, tone, score, score_breakdown, created_at, updated_at`

func scanGeneration(row interface{ Scan(...interface{}) error }) (*entity.Generation, error) {
	var gen entity.Generation
	var articleID sql.NullString
	var breakdownJSON []byte
	err := row.Scan(
		&gen.ID, &gen.UserID, &articleID,
		&gen.Model, &gen.Prompt, &gen.DraftText,
		&gen.Persona, &gen.Tone, &gen.Score, &breakdownJSON,
		&gen.CreatedAt, &gen.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	gen.ArticleID = articleID.String
	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &gen.ScoreBreakdown); err != nil {
			return nil, fmt.Errorf("unmarshal score_breakdown: %w", err)
		}
	}
	return &gen, nil
}

func (repo *GenerationRepo) Create(ctx context.Context, gen *entity.Generation) error {
	breakdownJSON, err := json.Marshal(gen.ScoreBreakdown)
	if err != nil {
		return fmt.Errorf("Create: marshal score_breakdown: %w", err)
	}

	// article_id is NULL for drafts generated from pasted text or files.
	var articleID sql.NullString
	if gen.ArticleID != "" {
		articleID = sql.NullString{String: gen.ArticleID, Valid: true}
	}

	const query = `
INSERT INTO generations
       (id, user_id, article_id, model, prompt, draft_text, persona, tone,
        score, score_breakdown, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = repo.db.ExecContext(ctx, query,
		gen.ID, gen.UserID, articleID,
		gen.Model, gen.Prompt, gen.DraftText,
		gen.Persona, gen.Tone, gen.Score, breakdownJSON,
		gen.CreatedAt, gen.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *GenerationRepo) Get(ctx context.Context, id string) (*entity.Generation, error) {
	query := fmt.Sprintf(`
SELECT %s FROM generations
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`, generationColumns)
	gen, err := scanGeneration(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Get %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return gen, nil
}

func (repo *GenerationRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*entity.Generation, error) {
	query := fmt.Sprintf(`
SELECT %s FROM generations
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, generationColumns)

	rows, err := repo.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer func() { _ = rows.Close() }()

	generations := make([]*entity.Generation, 0, limit)
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByUser: Scan: %w", err)
		}
		generations = append(generations, gen)
	}
	return generations, rows.Err()
}

func (repo *GenerationRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	const query = `
SELECT COUNT(*) FROM generations
WHERE user_id = $1 AND deleted_at IS NULL`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountByUser: %w", err)
	}
	return count, nil
}

func (repo *GenerationRepo) Delete(ctx context.Context, id string) error {
	const query = `
UPDATE generations SET deleted_at = now()
WHERE id = $1 AND deleted_at IS NULL`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete %s: %w", id, entity.ErrNotFound)
	}
	return nil
}
