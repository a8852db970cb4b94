// Package user holds the minimal user projection the lifecycle core needs.
package user

import (
	"context"

	"agora/internal/core/id"
)

// User is the author-side aggregate of a post.
type User struct {
	ID       id.ID  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`

	// PostCount is the public post counter. Author soft-deletes do not
	// change it; only hard removal and restore do.
	PostCount int `db:"post_count" json:"postCount"`
}

// Repository defines persistence for user aggregates.
type Repository interface {
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// AdjustPostCount changes the public post counter by delta, clamped
	// at zero.
	AdjustPostCount(ctx context.Context, userID id.ID, delta int) error
}
