// Package post defines the Post entity and its lifecycle states.
//
// A post is exactly one of: visible, hidden (still present, not shown),
// a stub (author-deleted placeholder awaiting purge), or removed
// (deleted_at set, dependent rows purged). Removal in soft form is
// reversible; permanent erasure of the row is terminal.
package post

import (
	"context"
	"time"

	"agora/internal/core/id"
)

// Post is a single reply or original post within a topic.
type Post struct {
	ID      id.ID `db:"id" json:"id"`
	TopicID id.ID `db:"topic_id" json:"topicId"`
	UserID  id.ID `db:"user_id" json:"userId"`

	// PostNumber is the sequence number within the topic. Numbers are never
	// reassigned; purges leave gaps.
	PostNumber int `db:"post_number" json:"postNumber"`

	// Raw is the post content. While the post is a stub it holds the
	// deletion placeholder and RawBackup holds the original text.
	Raw       string  `db:"raw" json:"raw"`
	RawBackup *string `db:"raw_backup" json:"-"`

	// Version for optimistic locking; incremented by the repository on
	// every update.
	Version int `db:"version" json:"version"`

	UserDeleted bool       `db:"user_deleted" json:"userDeleted"`
	Hidden      bool       `db:"hidden" json:"hidden"`
	HiddenAt    *time.Time `db:"hidden_at" json:"hiddenAt,omitempty"`

	DeletedAt   *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	DeletedByID *id.ID     `db:"deleted_by_id" json:"deletedById,omitempty"`

	// Cached counters derived from moderation-action rows.
	BookmarkCount      int `db:"bookmark_count" json:"bookmarkCount"`
	LikeCount          int `db:"like_count" json:"likeCount"`
	OffTopicCount      int `db:"off_topic_count" json:"offTopicCount"`
	InappropriateCount int `db:"inappropriate_count" json:"inappropriateCount"`
	SpamCount          int `db:"spam_count" json:"spamCount"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsRemoved reports whether the post has gone through hard removal
// (still present in soft form, dependent rows purged).
func (p *Post) IsRemoved() bool {
	return p.DeletedAt != nil
}

// IsStub reports whether the post is an author-deleted placeholder
// pending eventual purge.
func (p *Post) IsStub() bool {
	return p.UserDeleted && p.DeletedAt == nil
}

// IsFirst reports whether this is the topic's original post.
func (p *Post) IsFirst() bool {
	return p.PostNumber == 1
}

// MarkUserDeleted scrubs the content with the placeholder and flags the
// post as author-deleted. The original text is kept aside for recovery.
func (p *Post) MarkUserDeleted(placeholder string, now time.Time) {
	// An existing backup is the original text; re-marking must not
	// replace it with the placeholder.
	if p.RawBackup == nil {
		backup := p.Raw
		p.RawBackup = &backup
	}
	p.Raw = placeholder
	p.UserDeleted = true
	p.UpdatedAt = now
}

// RestoreUserDeleted reverses MarkUserDeleted, putting the original
// content back.
func (p *Post) RestoreUserDeleted(now time.Time) {
	if p.RawBackup != nil {
		p.Raw = *p.RawBackup
		p.RawBackup = nil
	}
	p.UserDeleted = false
	p.UpdatedAt = now
}

// MarkRemoved records a hard removal in soft form.
func (p *Post) MarkRemoved(by id.ID, now time.Time) {
	p.DeletedAt = &now
	p.DeletedByID = &by
	p.UpdatedAt = now
}

// ClearRemoved reverses MarkRemoved.
func (p *Post) ClearRemoved(now time.Time) {
	p.DeletedAt = nil
	p.DeletedByID = nil
	p.UpdatedAt = now
}

// Repository defines persistence for posts.
type Repository interface {
	// GetByID returns the post or a NOT_FOUND error.
	GetByID(ctx context.Context, postID id.ID) (*Post, error)

	// Update persists all fields with optimistic locking and bumps Version.
	Update(ctx context.Context, p *Post) error

	// Delete erases the post row permanently.
	Delete(ctx context.Context, postID id.ID) error

	// ListHiddenBefore returns posts currently hidden whose hidden_at is at
	// or before cutoff, excluding already removed posts.
	ListHiddenBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Post, error)

	// ListStubsBefore returns author-deleted stubs last updated at or
	// before cutoff, excluding already removed posts.
	ListStubsBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Post, error)

	// LatestRemaining returns the highest-numbered post in the topic that
	// has not been removed, or nil if none remain.
	LatestRemaining(ctx context.Context, topicID id.ID) (*Post, error)

	// RemainingNumbers returns the post numbers still present (not
	// removed) in the topic, ascending.
	RemainingNumbers(ctx context.Context, topicID id.ID) ([]int, error)

	// HasRemainingByUser reports whether the user still has any
	// non-removed post in the topic.
	HasRemainingByUser(ctx context.Context, topicID, userID id.ID) (bool, error)
}
