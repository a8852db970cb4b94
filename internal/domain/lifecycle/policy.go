package lifecycle

import (
	"time"

	"agora/internal/domain/post"
)

// RetentionPolicy decides, from a post's state and elapsed time, whether
// it is eligible for hard removal. Pure functions: the caller supplies
// now and any row-dependent facts (active flags), so eligibility is
// deterministic and testable.
type RetentionPolicy struct {
	cfg Config
}

// NewRetentionPolicy creates an evaluator bound to the injected config.
func NewRetentionPolicy(cfg Config) RetentionPolicy {
	return RetentionPolicy{cfg: cfg}
}

// StubEligible reports whether an author-deleted stub may be purged.
// The elapsed-time boundary is inclusive: elapsed >= window qualifies.
// hasActiveFlags must reflect unresolved blocking flags on the post; any
// active flag vetoes eligibility regardless of age.
func (p RetentionPolicy) StubEligible(pst *post.Post, now time.Time, hasActiveFlags bool) bool {
	if !pst.IsStub() || hasActiveFlags {
		return false
	}
	if p.cfg.StubRetentionWindow == 0 {
		return true
	}
	return now.Sub(pst.UpdatedAt) >= p.cfg.StubRetentionWindow
}

// HiddenEligible reports whether a hidden post has been hidden long
// enough to purge. Re-hiding resets hidden_at and with it the clock.
func (p RetentionPolicy) HiddenEligible(pst *post.Post, now time.Time) bool {
	if !pst.Hidden || pst.HiddenAt == nil || pst.IsRemoved() {
		return false
	}
	return now.Sub(*pst.HiddenAt) >= p.cfg.hiddenThreshold()
}
