// Package topic defines topics, per-user read positions and extracted links.
package topic

import (
	"context"
	"time"

	"agora/internal/core/id"
)

// Topic is an ordered discussion thread of posts.
type Topic struct {
	ID     id.ID  `db:"id" json:"id"`
	Title  string `db:"title" json:"title"`
	UserID id.ID  `db:"user_id" json:"userId"`

	PostsCount int `db:"posts_count" json:"postsCount"`

	// HighestPostNumber is the largest sequence number ever assigned in
	// this topic. It never decreases; purges leave gaps.
	HighestPostNumber int `db:"highest_post_number" json:"highestPostNumber"`

	LastPostUserID id.ID     `db:"last_post_user_id" json:"lastPostUserId"`
	LastPostedAt   time.Time `db:"last_posted_at" json:"lastPostedAt"`

	// Version for optimistic locking.
	Version int `db:"version" json:"version"`

	// DeletedAt marks a soft-removed topic. A removed topic never blocks
	// cleanup of its posts.
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsRemoved reports whether the topic itself is soft-removed.
func (t *Topic) IsRemoved() bool {
	return t.DeletedAt != nil
}

// Participant is a user's per-topic read-position record.
type Participant struct {
	TopicID id.ID `db:"topic_id" json:"topicId"`
	UserID  id.ID `db:"user_id" json:"userId"`

	// Posted is set while the user has at least one post in the topic.
	Posted bool `db:"posted" json:"posted"`

	LastReadPostNumber    int `db:"last_read_post_number" json:"lastReadPostNumber"`
	HighestSeenPostNumber int `db:"highest_seen_post_number" json:"highestSeenPostNumber"`
}

// Link is a hyperlink extracted from a post's content.
type Link struct {
	ID      id.ID  `db:"id" json:"id"`
	TopicID id.ID  `db:"topic_id" json:"topicId"`
	PostID  id.ID  `db:"post_id" json:"postId"`
	URL     string `db:"url" json:"url"`

	// Internal marks links pointing back into the platform.
	Internal bool `db:"internal" json:"internal"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Repository defines persistence for topics, participants and links.
//
// Lookups must return soft-removed topics too: post cleanup proceeds even
// when the owning topic is removed.
type Repository interface {
	GetByID(ctx context.Context, topicID id.ID) (*Topic, error)

	// Update persists all fields with optimistic locking and bumps Version.
	Update(ctx context.Context, t *Topic) error

	// ListParticipants returns all read-position records for the topic.
	ListParticipants(ctx context.Context, topicID id.ID) ([]*Participant, error)

	// SaveParticipant upserts a participant record.
	SaveParticipant(ctx context.Context, p *Participant) error

	// DeleteLinksByPost purges link rows extracted from the given post.
	DeleteLinksByPost(ctx context.Context, postID id.ID) (int64, error)
}
