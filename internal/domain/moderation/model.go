// Package moderation defines per-post user actions: bookmarks, likes and
// flags.
//
// Kinds split into two classes. Non-resolving kinds (bookmark, like) are
// plain engagement and are purged together with the post. Resolving kinds
// (flags) carry moderation judgement: they survive post removal and are
// marked agreed instead of deleted, so moderation history outlives the
// content it judged.
package moderation

import (
	"context"
	"time"

	"agora/internal/core/id"
)

// Kind is the type of a moderation action.
type Kind string

const (
	KindBookmark Kind = "bookmark"
	KindLike     Kind = "like"

	KindOffTopic         Kind = "off_topic"
	KindInappropriate    Kind = "inappropriate"
	KindSpam             Kind = "spam"
	KindNotifyModerators Kind = "notify_moderators"
)

// Resolving reports whether the kind is a flag that carries judgement
// outcome and must survive post removal in resolved form.
func (k Kind) Resolving() bool {
	switch k {
	case KindOffTopic, KindInappropriate, KindSpam, KindNotifyModerators:
		return true
	}
	return false
}

// Blocking reports whether an unresolved action of this kind prevents a
// stub from being purged by the retention sweep.
func (k Kind) Blocking() bool {
	return k.Resolving()
}

// Action is one user's action on one post.
type Action struct {
	ID     id.ID `db:"id" json:"id"`
	PostID id.ID `db:"post_id" json:"postId"`
	UserID id.ID `db:"user_id" json:"userId"`
	Kind   Kind  `db:"kind" json:"kind"`

	// AgreedAt/AgreedByID record flag resolution. Nil while unresolved.
	AgreedAt   *time.Time `db:"agreed_at" json:"agreedAt,omitempty"`
	AgreedByID *id.ID     `db:"agreed_by_id" json:"agreedById,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Resolved reports whether a flag has been agreed.
func (a *Action) Resolved() bool {
	return a.AgreedAt != nil
}

// Agree marks the flag as agreed by the given actor.
func (a *Action) Agree(by id.ID, at time.Time) {
	a.AgreedAt = &at
	a.AgreedByID = &by
}

// Repository defines persistence for moderation actions.
type Repository interface {
	// ListByPost returns all actions on the post.
	ListByPost(ctx context.Context, postID id.ID) ([]*Action, error)

	// Save persists an updated action (flag resolution).
	Save(ctx context.Context, a *Action) error

	// DeleteNonResolvingByPost purges bookmark/like rows for the post and
	// returns the number removed.
	DeleteNonResolvingByPost(ctx context.Context, postID id.ID) (int64, error)

	// HasActiveFlags reports whether any unresolved blocking flag exists
	// on the post.
	HasActiveFlags(ctx context.Context, postID id.ID) (bool, error)

	// CountByKind returns surviving action counts per kind for the post.
	CountByKind(ctx context.Context, postID id.ID) (map[Kind]int, error)
}
