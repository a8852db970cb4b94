package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"agora/internal/core/id"
	"agora/internal/domain/activity"
)

// Compile-time check that ActivityRepo implements activity.Repository.
var _ activity.Repository = (*ActivityRepo)(nil)

// ActivityRepo is the PostgreSQL implementation for the per-user
// activity log.
type ActivityRepo struct {
	txManager *TxManager
}

// NewActivityRepo creates an activity repository.
func NewActivityRepo(txManager *TxManager) *ActivityRepo {
	return &ActivityRepo{txManager: txManager}
}

// DeleteByPost purges all activity entries referencing the post.
func (r *ActivityRepo) DeleteByPost(ctx context.Context, postID id.ID) (int64, error) {
	q := builder().
		Delete("user_activity").
		Where(squirrel.Eq{"post_id": postID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete activity entries: %w", err)
	}

	return result.RowsAffected(), nil
}
