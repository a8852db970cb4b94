package lifecycle

import (
	"context"
)

// Job names enqueued by the fan-out. Consumers assume at-least-once
// delivery.
const (
	// JobRefeatureUsers recomputes which users are highlighted on a topic
	// after one of its posts disappears.
	JobRefeatureUsers = "refeature_users"
)

// JobQueue enqueues background work. Implementations must write the job
// within the ambient transaction so workers only ever observe committed
// state (transactional outbox).
type JobQueue interface {
	Enqueue(ctx context.Context, job string, payload any) error
}

// ActorCapability is the role decision consumed once at the top of
// Destroy. All branching downstream keys off this value, never off raw
// role flags.
type ActorCapability int

const (
	// CapabilityNone means the actor may not touch the post.
	CapabilityNone ActorCapability = iota

	// CapabilityAuthor is the post's own author without moderation
	// privilege: soft-delete path only.
	CapabilityAuthor

	// CapabilityModerator may hard-remove and restore any post.
	CapabilityModerator
)

func (c ActorCapability) String() string {
	switch c {
	case CapabilityAuthor:
		return "author"
	case CapabilityModerator:
		return "moderator"
	default:
		return "none"
	}
}
