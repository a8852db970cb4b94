package lifecycle

import (
	"time"

	"agora/internal/core/id"
)

// DefaultHiddenPostThreshold is how long a post stays hidden before the
// sweep hard-removes it.
const DefaultHiddenPostThreshold = 30 * 24 * time.Hour

// DefaultDeletedPlaceholder is the content a stub shows in place of the
// original text. Operators override it per locale.
const DefaultDeletedPlaceholder = "(post deleted by author)"

// Config holds the injected retention and attribution settings.
// The orchestrator never reads ambient global state.
type Config struct {
	// StubRetentionWindow is how long an author-deleted stub is kept
	// before it becomes eligible for purge. Zero means author deletes are
	// hard-removed immediately.
	StubRetentionWindow time.Duration

	// HiddenPostThreshold is the age at which hidden posts are purged.
	HiddenPostThreshold time.Duration

	// DeletedPlaceholder is the localized text substituted for
	// author-deleted content.
	DeletedPlaceholder string

	// SystemUserID attributes sweep removals.
	SystemUserID id.ID

	// SweepBatchSize caps candidates per sweep run.
	SweepBatchSize int
}

// DefaultConfig returns production defaults. SystemUserID must still be
// set by the caller.
func DefaultConfig() Config {
	return Config{
		StubRetentionWindow: 72 * time.Hour,
		HiddenPostThreshold: DefaultHiddenPostThreshold,
		DeletedPlaceholder:  DefaultDeletedPlaceholder,
		SweepBatchSize:      500,
	}
}

// placeholder returns the configured stub text or the default.
func (c Config) placeholder() string {
	if c.DeletedPlaceholder != "" {
		return c.DeletedPlaceholder
	}
	return DefaultDeletedPlaceholder
}

// hiddenThreshold returns the configured hidden-post age or the default.
func (c Config) hiddenThreshold() time.Duration {
	if c.HiddenPostThreshold > 0 {
		return c.HiddenPostThreshold
	}
	return DefaultHiddenPostThreshold
}

// sweepBatchSize returns the configured batch cap or the default.
func (c Config) sweepBatchSize() int {
	if c.SweepBatchSize > 0 {
		return c.SweepBatchSize
	}
	return 500
}
