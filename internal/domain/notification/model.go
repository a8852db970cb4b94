// Package notification defines notification and mention rows derived from
// post content. Both are purged 1:1 with the owning post's hard removal
// and are never resurrected by recovery.
package notification

import (
	"context"
	"time"

	"agora/internal/core/id"
)

// Kind is the notification category.
type Kind string

const (
	KindMentioned Kind = "mentioned"
	KindReplied   Kind = "replied"
	KindQuoted    Kind = "quoted"
	KindLiked     Kind = "liked"
)

// Notification is a per-user alert derived from a post.
type Notification struct {
	ID      id.ID `db:"id" json:"id"`
	UserID  id.ID `db:"user_id" json:"userId"`
	TopicID id.ID `db:"topic_id" json:"topicId"`
	PostID  id.ID `db:"post_id" json:"postId"`
	Kind    Kind  `db:"kind" json:"kind"`

	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Mention records that a post mentioned a user. Kept separately from the
// delivered notification so mention scans stay cheap.
type Mention struct {
	ID              id.ID     `db:"id" json:"id"`
	PostID          id.ID     `db:"post_id" json:"postId"`
	MentionedUserID id.ID     `db:"mentioned_user_id" json:"mentionedUserId"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// Repository defines persistence for notifications and mentions.
type Repository interface {
	// DeleteByPost purges notification rows referencing the post.
	DeleteByPost(ctx context.Context, postID id.ID) (int64, error)

	// DeleteMentionsByPost purges mention rows referencing the post.
	DeleteMentionsByPost(ctx context.Context, postID id.ID) (int64, error)
}
