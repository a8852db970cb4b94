package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"agora/internal/core/apperror"
	"agora/internal/core/id"
	"agora/internal/domain/user"
)

// Compile-time check that UserRepo implements user.Repository.
var _ user.Repository = (*UserRepo)(nil)

// UserRepo is the PostgreSQL implementation of the user repository.
type UserRepo struct {
	txManager *TxManager
}

// NewUserRepo creates a user repository.
func NewUserRepo(txManager *TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*user.User, error) {
	q := builder().
		Select("id", "username", "post_count").
		From("users").
		Where(squirrel.Eq{"id": userID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u user.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", userID.String())
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// AdjustPostCount changes the public post counter by delta, clamped at zero.
func (r *UserRepo) AdjustPostCount(ctx context.Context, userID id.ID, delta int) error {
	sql := `
		UPDATE users
		SET post_count = GREATEST(0, post_count + $1)
		WHERE id = $2
	`

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, delta, userID)
	if err != nil {
		return fmt.Errorf("adjust post count: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", userID.String())
	}

	return nil
}
