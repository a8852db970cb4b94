// Package actor describes the user on whose behalf a lifecycle operation runs.
package actor

import (
	"context"

	"agora/internal/core/id"
)

// Actor is the authenticated user (or the system itself) performing an operation.
type Actor struct {
	UserID     id.ID
	Username   string
	Admin      bool
	Moderator  bool
	TrustLevel int

	// System marks internal actors (batch sweeps, scheduled cleanup).
	System bool
}

// System returns the synthetic actor used by batch sweeps. Sweep removals are
// attributed to it in audit entries and deleted_by references.
func System(userID id.ID) Actor {
	return Actor{
		UserID:   userID,
		Username: "system",
		Admin:    true,
		System:   true,
	}
}

// IsStaff reports whether the actor holds any staff role.
func (a Actor) IsStaff() bool {
	return a.Admin || a.Moderator
}

type actorKey struct{}

// WithActor adds the acting user to context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the acting user from context.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// UserIDFromContext returns the acting user's ID or the nil ID.
func UserIDFromContext(ctx context.Context) id.ID {
	if a, ok := FromContext(ctx); ok {
		return a.UserID
	}
	return id.Nil()
}
