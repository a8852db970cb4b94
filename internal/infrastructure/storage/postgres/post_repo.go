package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"agora/internal/core/apperror"
	"agora/internal/core/id"
	"agora/internal/domain/post"
)

// builder returns a squirrel builder with PostgreSQL placeholder format.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

var postColumns = []string{
	"id", "topic_id", "user_id", "post_number", "raw", "raw_backup",
	"version", "user_deleted", "hidden", "hidden_at",
	"deleted_at", "deleted_by_id",
	"bookmark_count", "like_count", "off_topic_count",
	"inappropriate_count", "spam_count",
	"created_at", "updated_at",
}

// Compile-time check that PostRepo implements post.Repository.
var _ post.Repository = (*PostRepo)(nil)

// PostRepo is the PostgreSQL implementation of the post repository.
type PostRepo struct {
	txManager *TxManager
}

// NewPostRepo creates a post repository.
func NewPostRepo(txManager *TxManager) *PostRepo {
	return &PostRepo{txManager: txManager}
}

func (r *PostRepo) baseSelect() squirrel.SelectBuilder {
	return builder().Select(postColumns...).From("posts")
}

// GetByID retrieves a post by ID, removed posts included.
func (r *PostRepo) GetByID(ctx context.Context, postID id.ID) (*post.Post, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": postID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p post.Post
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("post", postID.String())
		}
		return nil, fmt.Errorf("get post: %w", err)
	}

	return &p, nil
}

// Update persists all mutable fields with optimistic locking and bumps
// the in-memory Version on success.
func (r *PostRepo) Update(ctx context.Context, p *post.Post) error {
	q := builder().
		Update("posts").
		Set("raw", p.Raw).
		Set("raw_backup", p.RawBackup).
		Set("user_deleted", p.UserDeleted).
		Set("hidden", p.Hidden).
		Set("hidden_at", p.HiddenAt).
		Set("deleted_at", p.DeletedAt).
		Set("deleted_by_id", p.DeletedByID).
		Set("bookmark_count", p.BookmarkCount).
		Set("like_count", p.LikeCount).
		Set("off_topic_count", p.OffTopicCount).
		Set("inappropriate_count", p.InappropriateCount).
		Set("spam_count", p.SpamCount).
		Set("updated_at", p.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.Eq{"version": p.Version}) // optimistic lock: expect current version

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("post", p.ID)
	}

	p.Version++
	return nil
}

// Delete erases the post row permanently.
func (r *PostRepo) Delete(ctx context.Context, postID id.ID) error {
	q := builder().
		Delete("posts").
		Where(squirrel.Eq{"id": postID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("post", postID.String())
	}

	return nil
}

// ListHiddenBefore returns hidden, not-yet-removed posts whose hidden_at
// is at or before cutoff.
func (r *PostRepo) ListHiddenBefore(ctx context.Context, cutoff time.Time, limit int) ([]*post.Post, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"hidden": true}).
		Where(squirrel.LtOrEq{"hidden_at": cutoff}).
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy("hidden_at ASC").
		Limit(uint64(limit))

	return r.selectPosts(ctx, q, "list hidden")
}

// ListStubsBefore returns author-deleted stubs last touched at or before
// cutoff.
func (r *PostRepo) ListStubsBefore(ctx context.Context, cutoff time.Time, limit int) ([]*post.Post, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"user_deleted": true}).
		Where(squirrel.Eq{"deleted_at": nil}).
		Where(squirrel.LtOrEq{"updated_at": cutoff}).
		OrderBy("updated_at ASC").
		Limit(uint64(limit))

	return r.selectPosts(ctx, q, "list stubs")
}

// LatestRemaining returns the highest-numbered non-removed post in the
// topic, or nil if the topic has none left.
func (r *PostRepo) LatestRemaining(ctx context.Context, topicID id.ID) (*post.Post, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"topic_id": topicID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy("post_number DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p post.Post
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest remaining: %w", err)
	}

	return &p, nil
}

// RemainingNumbers returns non-removed post numbers in the topic, ascending.
func (r *PostRepo) RemainingNumbers(ctx context.Context, topicID id.ID) ([]int, error) {
	q := builder().
		Select("post_number").
		From("posts").
		Where(squirrel.Eq{"topic_id": topicID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy("post_number ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var numbers []int
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &numbers, sql, args...); err != nil {
		return nil, fmt.Errorf("remaining numbers: %w", err)
	}

	return numbers, nil
}

// HasRemainingByUser reports whether the user still has a non-removed
// post in the topic.
func (r *PostRepo) HasRemainingByUser(ctx context.Context, topicID, userID id.ID) (bool, error) {
	q := builder().
		Select("1").
		From("posts").
		Where(squirrel.Eq{"topic_id": topicID}).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"deleted_at": nil}).
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
		return false, fmt.Errorf("has remaining by user: %w", err)
	}

	return true, nil
}

func (r *PostRepo) selectPosts(ctx context.Context, q squirrel.SelectBuilder, op string) ([]*post.Post, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var posts []*post.Post
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &posts, sql, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return posts, nil
}
