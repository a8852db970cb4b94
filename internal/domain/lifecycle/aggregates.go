package lifecycle

import (
	"context"
	"fmt"

	"agora/internal/domain/moderation"
	"agora/internal/domain/post"
	"agora/internal/domain/topic"
	"agora/internal/domain/user"
)

// AggregateUpdater keeps derived counters on topics, users and posts in
// step with lifecycle transitions. Author soft-deletes do not pass
// through here: the public post count only moves on the hard path.
type AggregateUpdater struct {
	topics  topic.Repository
	users   user.Repository
	actions moderation.Repository
}

// NewAggregateUpdater wires the updater to its repositories.
func NewAggregateUpdater(topics topic.Repository, users user.Repository, actions moderation.Repository) *AggregateUpdater {
	return &AggregateUpdater{topics: topics, users: users, actions: actions}
}

// PostRemoved decrements topic and author counters for a hard removal.
func (u *AggregateUpdater) PostRemoved(ctx context.Context, p *post.Post) error {
	return u.adjust(ctx, p, -1)
}

// PostRestored reverses PostRemoved for a recovered post.
func (u *AggregateUpdater) PostRestored(ctx context.Context, p *post.Post) error {
	return u.adjust(ctx, p, +1)
}

func (u *AggregateUpdater) adjust(ctx context.Context, p *post.Post, delta int) error {
	t, err := u.topics.GetByID(ctx, p.TopicID)
	if err != nil {
		return fmt.Errorf("load topic: %w", err)
	}

	t.PostsCount += delta
	if t.PostsCount < 0 {
		t.PostsCount = 0
	}
	if err := u.topics.Update(ctx, t); err != nil {
		return fmt.Errorf("update topic counters: %w", err)
	}

	if err := u.users.AdjustPostCount(ctx, p.UserID, delta); err != nil {
		return fmt.Errorf("adjust author post count: %w", err)
	}

	return nil
}

// RefreshActionCounts recomputes the post's cached per-kind counters from
// the surviving moderation-action rows. The caller persists the post.
func (u *AggregateUpdater) RefreshActionCounts(ctx context.Context, p *post.Post) error {
	counts, err := u.actions.CountByKind(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("count actions: %w", err)
	}

	p.BookmarkCount = counts[moderation.KindBookmark]
	p.LikeCount = counts[moderation.KindLike]
	p.OffTopicCount = counts[moderation.KindOffTopic]
	p.InappropriateCount = counts[moderation.KindInappropriate]
	p.SpamCount = counts[moderation.KindSpam]

	return nil
}
