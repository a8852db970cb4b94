package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"agora/internal/core/apperror"
	"agora/internal/core/id"
	"agora/internal/domain/moderation"
)

var actionColumns = []string{
	"id", "post_id", "user_id", "kind", "agreed_at", "agreed_by_id", "created_at",
}

var nonResolvingKinds = []moderation.Kind{
	moderation.KindBookmark,
	moderation.KindLike,
}

var resolvingKinds = []moderation.Kind{
	moderation.KindOffTopic,
	moderation.KindInappropriate,
	moderation.KindSpam,
	moderation.KindNotifyModerators,
}

// Compile-time check that ModerationRepo implements moderation.Repository.
var _ moderation.Repository = (*ModerationRepo)(nil)

// ModerationRepo is the PostgreSQL implementation for per-post user
// actions (bookmarks, likes, flags).
type ModerationRepo struct {
	txManager *TxManager
}

// NewModerationRepo creates a moderation repository.
func NewModerationRepo(txManager *TxManager) *ModerationRepo {
	return &ModerationRepo{txManager: txManager}
}

// ListByPost returns all actions on the post.
func (r *ModerationRepo) ListByPost(ctx context.Context, postID id.ID) ([]*moderation.Action, error) {
	q := builder().
		Select(actionColumns...).
		From("post_actions").
		Where(squirrel.Eq{"post_id": postID}).
		OrderBy("created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var actions []*moderation.Action
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &actions, sql, args...); err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}

	return actions, nil
}

// Save persists flag-resolution fields of an action.
func (r *ModerationRepo) Save(ctx context.Context, a *moderation.Action) error {
	q := builder().
		Update("post_actions").
		Set("agreed_at", a.AgreedAt).
		Set("agreed_by_id", a.AgreedByID).
		Where(squirrel.Eq{"id": a.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("save action: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("post_action", a.ID.String())
	}

	return nil
}

// DeleteNonResolvingByPost purges bookmark/like rows for the post.
func (r *ModerationRepo) DeleteNonResolvingByPost(ctx context.Context, postID id.ID) (int64, error) {
	q := builder().
		Delete("post_actions").
		Where(squirrel.Eq{"post_id": postID}).
		Where(squirrel.Eq{"kind": nonResolvingKinds})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete actions: %w", err)
	}

	return result.RowsAffected(), nil
}

// HasActiveFlags reports whether any unresolved flag exists on the post.
func (r *ModerationRepo) HasActiveFlags(ctx context.Context, postID id.ID) (bool, error) {
	q := builder().
		Select("1").
		From("post_actions").
		Where(squirrel.Eq{"post_id": postID}).
		Where(squirrel.Eq{"kind": resolvingKinds}).
		Where(squirrel.Eq{"agreed_at": nil}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists int
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has active flags: %w", err)
	}

	return true, nil
}

// CountByKind returns surviving action counts per kind for the post.
func (r *ModerationRepo) CountByKind(ctx context.Context, postID id.ID) (map[moderation.Kind]int, error) {
	q := builder().
		Select("kind", "COUNT(*)").
		From("post_actions").
		Where(squirrel.Eq{"post_id": postID}).
		GroupBy("kind")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[moderation.Kind]int)
	for rows.Next() {
		var kind moderation.Kind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[kind] = count
	}

	return counts, rows.Err()
}
