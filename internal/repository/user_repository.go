package repository

import (
	"context"
	"errors"

	"postpilot/internal/domain/entity"
)

// ErrQuotaExceeded is returned by ReserveQuota when the user's monthly
// allowance for the provider cannot cover the requested units.
var ErrQuotaExceeded = errors.New("monthly quota exceeded")

type UserRepository interface {
	Get(ctx context.Context, id string) (*entity.User, error)
	// ReserveQuota atomically checks remaining quota for the provider
	// and increments the used counter by units, inside one transaction
	// holding a row lock on the user. The lock is released before the
	// caller does any further work. Returns ErrQuotaExceeded without
	// mutating anything when the allowance is insufficient.
	ReserveQuota(ctx context.Context, userID string, provider entity.Provider, units int) error
	// RefundQuota decrements the used counter by units, floored at
	// zero. Used to hand back a reservation after a failed generation.
	RefundQuota(ctx context.Context, userID string, provider entity.Provider, units int) error
}
