package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"agora/internal/core/apperror"
	"agora/internal/core/id"
	"agora/internal/domain/topic"
)

var topicColumns = []string{
	"id", "title", "user_id", "posts_count", "highest_post_number",
	"last_post_user_id", "last_posted_at", "version",
	"deleted_at", "created_at", "updated_at",
}

// Compile-time check that TopicRepo implements topic.Repository.
var _ topic.Repository = (*TopicRepo)(nil)

// TopicRepo is the PostgreSQL implementation of the topic repository.
// Lookups never filter on deleted_at: cleanup must reach posts of
// soft-removed topics too.
type TopicRepo struct {
	txManager *TxManager
}

// NewTopicRepo creates a topic repository.
func NewTopicRepo(txManager *TxManager) *TopicRepo {
	return &TopicRepo{txManager: txManager}
}

// GetByID retrieves a topic by ID, soft-removed topics included.
func (r *TopicRepo) GetByID(ctx context.Context, topicID id.ID) (*topic.Topic, error) {
	q := builder().
		Select(topicColumns...).
		From("topics").
		Where(squirrel.Eq{"id": topicID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t topic.Topic
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("topic", topicID.String())
		}
		return nil, fmt.Errorf("get topic: %w", err)
	}

	return &t, nil
}

// Update persists all mutable fields with optimistic locking.
func (r *TopicRepo) Update(ctx context.Context, t *topic.Topic) error {
	q := builder().
		Update("topics").
		Set("title", t.Title).
		Set("posts_count", t.PostsCount).
		Set("highest_post_number", t.HighestPostNumber).
		Set("last_post_user_id", t.LastPostUserID).
		Set("last_posted_at", t.LastPostedAt).
		Set("deleted_at", t.DeletedAt).
		Set("updated_at", t.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": t.ID}).
		Where(squirrel.Eq{"version": t.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("topic", t.ID)
	}

	t.Version++
	return nil
}

// ListParticipants returns all read-position records for the topic.
func (r *TopicRepo) ListParticipants(ctx context.Context, topicID id.ID) ([]*topic.Participant, error) {
	q := builder().
		Select("topic_id", "user_id", "posted", "last_read_post_number", "highest_seen_post_number").
		From("topic_participants").
		Where(squirrel.Eq{"topic_id": topicID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var participants []*topic.Participant
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &participants, sql, args...); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	return participants, nil
}

// SaveParticipant upserts a read-position record.
func (r *TopicRepo) SaveParticipant(ctx context.Context, p *topic.Participant) error {
	q := builder().
		Insert("topic_participants").
		Columns("topic_id", "user_id", "posted", "last_read_post_number", "highest_seen_post_number").
		Values(p.TopicID, p.UserID, p.Posted, p.LastReadPostNumber, p.HighestSeenPostNumber).
		Suffix(`ON CONFLICT (topic_id, user_id) DO UPDATE SET
			posted = EXCLUDED.posted,
			last_read_post_number = EXCLUDED.last_read_post_number,
			highest_seen_post_number = EXCLUDED.highest_seen_post_number`)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save participant: %w", err)
	}

	return nil
}

// DeleteLinksByPost purges link rows extracted from the given post.
func (r *TopicRepo) DeleteLinksByPost(ctx context.Context, postID id.ID) (int64, error) {
	q := builder().
		Delete("topic_links").
		Where(squirrel.Eq{"post_id": postID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete topic links: %w", err)
	}

	return result.RowsAffected(), nil
}
