package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"postpilot/internal/domain/entity"
	"postpilot/internal/repository"
)

type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) repository.UserRepository {
	return &UserRepo{db: db}
}

const userColumns = `id, quota_claude_monthly, quota_claude_used, quota_gpt_monthly, quota_gpt_used, plan_renews_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.QuotaClaudeMonthly, &user.QuotaClaudeUsed,
		&user.QuotaGPTMonthly, &user.QuotaGPTUsed,
		&user.PlanRenewsAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (repo *UserRepo) Get(ctx context.Context, id string) (*entity.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	user, err := scanUser(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Get %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return user, nil
}

// quotaUsedColumn maps a provider to its used-counter column.
func quotaUsedColumn(provider entity.Provider) string {
	if provider == entity.ProviderOpenAI {
		return "quota_gpt_used"
	}
	return "quota_claude_used"
}

// ReserveQuota checks and debits the provider allowance inside one
// transaction, holding a row lock on the user so two concurrent
// requests cannot both pass the check on the same last unit.
func (repo *UserRepo) ReserveQuota(ctx context.Context, userID string, provider entity.Provider, units int) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReserveQuota: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 FOR UPDATE`, userColumns)
	user, err := scanUser(tx.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return fmt.Errorf("ReserveQuota %s: %w", userID, entity.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("ReserveQuota: %w", err)
	}

	if user.QuotaRemaining(provider) < units {
		return fmt.Errorf("ReserveQuota %s/%s: %w", userID, provider, repository.ErrQuotaExceeded)
	}

	col := quotaUsedColumn(provider)
	update := fmt.Sprintf(`UPDATE users SET %s = %s + $1 WHERE id = $2`, col, col)
	if _, err := tx.ExecContext(ctx, update, units, userID); err != nil {
		return fmt.Errorf("ReserveQuota: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ReserveQuota: commit: %w", err)
	}
	return nil
}

// RefundQuota hands a reservation back, never driving the counter
// below zero.
func (repo *UserRepo) RefundQuota(ctx context.Context, userID string, provider entity.Provider, units int) error {
	col := quotaUsedColumn(provider)
	query := fmt.Sprintf(`UPDATE users SET %s = GREATEST(0, %s - $1) WHERE id = $2`, col, col)
	res, err := repo.db.ExecContext(ctx, query, units, userID)
	if err != nil {
		return fmt.Errorf("RefundQuota: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("RefundQuota %s: %w", userID, entity.ErrNotFound)
	}
	return nil
}
