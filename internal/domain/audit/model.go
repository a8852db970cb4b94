// Package audit records privileged actions on other users' content.
// The log is append-only: entries are created whenever a staff or system
// actor deletes or restores a post it does not own.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"agora/internal/core/id"
)

// Action is the audited operation type.
type Action string

const (
	ActionDeletePost  Action = "delete_post"
	ActionRecoverPost Action = "recover_post"
)

// Entry is a single audit record.
type Entry struct {
	ID      id.ID  `db:"id" json:"id"`
	Action  Action `db:"action" json:"action"`
	ActorID id.ID  `db:"actor_id" json:"actorId"`

	PostID  id.ID `db:"post_id" json:"postId"`
	TopicID id.ID `db:"topic_id" json:"topicId"`

	// Context is the free-form reason supplied by the caller
	// ("flagged spam", "hidden post more than 30 days old", ...).
	Context string `db:"context" json:"context,omitempty"`

	// Snapshot holds the post state at the time of the action, so the
	// judged content survives even a permanent purge.
	Snapshot json.RawMessage `db:"snapshot" json:"snapshot,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Repository defines persistence for audit entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
}
