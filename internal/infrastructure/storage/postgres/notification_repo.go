package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"agora/internal/core/id"
	"agora/internal/domain/notification"
)

// Compile-time check that NotificationRepo implements notification.Repository.
var _ notification.Repository = (*NotificationRepo)(nil)

// NotificationRepo is the PostgreSQL implementation for notifications
// and mentions.
type NotificationRepo struct {
	txManager *TxManager
}

// NewNotificationRepo creates a notification repository.
func NewNotificationRepo(txManager *TxManager) *NotificationRepo {
	return &NotificationRepo{txManager: txManager}
}

// DeleteByPost purges notification rows referencing the post.
func (r *NotificationRepo) DeleteByPost(ctx context.Context, postID id.ID) (int64, error) {
	return r.deleteByPost(ctx, "notifications", postID)
}

// DeleteMentionsByPost purges mention rows referencing the post.
func (r *NotificationRepo) DeleteMentionsByPost(ctx context.Context, postID id.ID) (int64, error) {
	return r.deleteByPost(ctx, "mentions", postID)
}

func (r *NotificationRepo) deleteByPost(ctx context.Context, table string, postID id.ID) (int64, error) {
	q := builder().
		Delete(table).
		Where(squirrel.Eq{"post_id": postID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}

	return result.RowsAffected(), nil
}
