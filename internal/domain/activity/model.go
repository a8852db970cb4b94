// Package activity defines the denormalized per-user action log
// (bookmarked X, liked Y) shown on profile pages. Entries referencing a
// post are purged 1:1 with its hard removal.
package activity

import (
	"context"
	"time"

	"agora/internal/core/id"
)

// ActionType categorizes a logged user action.
type ActionType string

const (
	ActionBookmark ActionType = "bookmark"
	ActionLike     ActionType = "like"
	ActionReply    ActionType = "reply"
)

// Entry is one row in a user's activity log.
type Entry struct {
	ID         id.ID      `db:"id" json:"id"`
	UserID     id.ID      `db:"user_id" json:"userId"`
	ActionType ActionType `db:"action_type" json:"actionType"`
	TopicID    id.ID      `db:"topic_id" json:"topicId"`
	PostID     id.ID      `db:"post_id" json:"postId"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// Repository defines persistence for activity log entries.
type Repository interface {
	// DeleteByPost purges all entries referencing the post.
	DeleteByPost(ctx context.Context, postID id.ID) (int64, error)
}
