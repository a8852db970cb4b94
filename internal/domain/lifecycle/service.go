// Package lifecycle orchestrates the retirement, recovery and purge of
// posts, keeping every derived aggregate consistent with the transition.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/juju/clock"

	"agora/internal/core/actor"
	"agora/internal/core/apperror"
	"agora/internal/core/id"
	"agora/internal/core/security"
	"agora/internal/core/tx"
	"agora/internal/domain/activity"
	"agora/internal/domain/audit"
	"agora/internal/domain/moderation"
	"agora/internal/domain/notification"
	"agora/internal/domain/post"
	"agora/internal/domain/topic"
	"agora/internal/domain/user"
	"agora/pkg/logger"
)

// Deps are the collaborators a Destroyer is built from.
type Deps struct {
	Posts         post.Repository
	Topics        topic.Repository
	Users         user.Repository
	Actions       moderation.Repository
	Notifications notification.Repository
	Activity      activity.Repository
	Audit         audit.Repository
	Queue         JobQueue
	Tx            tx.Manager
	Roles         security.RolePolicy
	Clock         clock.Clock
}

// Destroyer is the lifecycle orchestrator. One call is one transaction:
// a crash mid-operation leaves either the pre- or the post-state, never a
// post with half its dependent rows gone.
type Destroyer struct {
	cfg        Config
	policy     RetentionPolicy
	fanout     *Fanout
	aggregates *AggregateUpdater
	positions  *PositionRecalculator
	d          Deps
}

// NewDestroyer creates the orchestrator and its internal components.
func NewDestroyer(cfg Config, d Deps) *Destroyer {
	aggregates := NewAggregateUpdater(d.Topics, d.Users, d.Actions)
	return &Destroyer{
		cfg:        cfg,
		policy:     NewRetentionPolicy(cfg),
		aggregates: aggregates,
		fanout: NewFanout(
			d.Notifications, d.Topics, d.Actions, d.Activity,
			aggregates, d.Queue, d.Clock, cfg.SystemUserID,
		),
		positions: NewPositionRecalculator(d.Posts, d.Topics),
		d:         d,
	}
}

// Policy exposes the retention evaluator, mainly for sweep scheduling
// dashboards and tests.
func (s *Destroyer) Policy() RetentionPolicy {
	return s.policy
}

// Options tune a single Destroy call.
type Options struct {
	// Context is recorded on the audit entry as the removal reason.
	Context string

	// Permanent erases the post row itself after cleanup. Terminal; not
	// recoverable.
	Permanent bool
}

// Destroy retires a post on behalf of the acting user.
//
// The actor's capability is decided once, up front. An author without
// moderation privilege gets the soft path: content scrubbed to the
// placeholder, user_deleted set, recoverable. A privileged actor, or any
// author while the retention window is zero, gets the hard path: removal
// in soft form plus the full side-effect fan-out.
//
// Repeated destroys converge: an already removed post is a no-op, an
// author retry on an existing stub is a no-op, and a permanent destroy
// of an already removed post only erases the row.
func (s *Destroyer) Destroy(ctx context.Context, a actor.Actor, postID id.ID, opts Options) error {
	return s.d.Tx.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.d.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}

		if p.IsRemoved() {
			if !opts.Permanent {
				logger.Debug(ctx, "post already removed, nothing to do", "post_id", p.ID)
				return nil
			}
			if s.capabilityFor(a, p) != CapabilityModerator {
				return apperror.NewForbidden("not allowed to erase this post").
					WithDetail("post_id", p.ID).
					WithDetail("actor_id", a.UserID)
			}
			return s.erase(ctx, a, p, opts)
		}

		switch s.capabilityFor(a, p) {
		case CapabilityModerator:
			return s.hardRemove(ctx, a, p, opts)
		case CapabilityAuthor:
			if s.cfg.StubRetentionWindow > 0 {
				if p.IsStub() {
					logger.Debug(ctx, "post already a stub, nothing to do", "post_id", p.ID)
					return nil
				}
				return s.softDelete(ctx, p)
			}
			// Zero grace period: author deletes skip the stub stage.
			return s.hardRemove(ctx, a, p, opts)
		default:
			return apperror.NewForbidden("not allowed to delete this post").
				WithDetail("post_id", p.ID).
				WithDetail("actor_id", a.UserID)
		}
	})
}

// Recover reverses a reversible deletion. Restoring an author stub brings
// the original content back; restoring a removed post clears deleted_at
// and re-increments the aggregates. Side-effect rows already purged stay
// purged. Recovering a post that is not deleted at all is rejected with
// an INVALID_TRANSITION error.
func (s *Destroyer) Recover(ctx context.Context, a actor.Actor, postID id.ID) error {
	return s.d.Tx.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.d.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}

		switch {
		case p.IsRemoved():
			if !s.d.Roles.HasModerationPrivilege(a) {
				return apperror.NewForbidden("not allowed to recover this post").
					WithDetail("post_id", p.ID)
			}
			return s.recoverRemoved(ctx, a, p)

		case p.IsStub():
			if a.UserID != p.UserID && !s.d.Roles.HasModerationPrivilege(a) {
				return apperror.NewForbidden("not allowed to recover this post").
					WithDetail("post_id", p.ID)
			}
			return s.recoverStub(ctx, a, p)

		default:
			return apperror.NewInvalidTransition("post is not deleted").
				WithDetail("post_id", p.ID)
		}
	})
}

// SweepFailure describes one candidate a sweep could not remove.
type SweepFailure struct {
	PostID id.ID
	Err    string
}

// SweepReport summarizes one batch sweep run.
type SweepReport struct {
	Scanned   int
	Destroyed int
	Failures  []SweepFailure
}

// DestroyOldHiddenPosts hard-removes posts that have stayed hidden past
// the threshold, attributed to the system actor. Re-hidden posts start
// the clock over. A candidate's failure is reported and the sweep moves
// on; only failure to read the candidate list aborts the run.
func (s *Destroyer) DestroyOldHiddenPosts(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	now := s.d.Clock.Now().UTC()
	cutoff := now.Add(-s.cfg.hiddenThreshold())

	candidates, err := s.d.Posts.ListHiddenBefore(ctx, cutoff, s.cfg.sweepBatchSize())
	if err != nil {
		return report, fmt.Errorf("list hidden candidates: %w", err)
	}
	report.Scanned = len(candidates)

	system := actor.System(s.cfg.SystemUserID)
	for _, p := range candidates {
		if !s.policy.HiddenEligible(p, now) {
			continue
		}
		err := s.Destroy(ctx, system, p.ID, Options{Context: "hidden for longer than threshold"})
		if err != nil {
			logger.Error(ctx, "hidden post sweep: candidate failed", "post_id", p.ID, "error", err)
			report.Failures = append(report.Failures, SweepFailure{PostID: p.ID, Err: err.Error()})
			continue
		}
		report.Destroyed++
	}

	logger.Info(ctx, "hidden post sweep finished",
		"scanned", report.Scanned, "destroyed", report.Destroyed, "failed", len(report.Failures))
	return report, nil
}

// DestroyStubs hard-removes author-deleted stubs older than the retention
// window, unless an unresolved blocking flag holds them. Each removal is
// its own transaction; rerunning with no new candidates changes nothing.
func (s *Destroyer) DestroyStubs(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	now := s.d.Clock.Now().UTC()
	cutoff := now
	if s.cfg.StubRetentionWindow > 0 {
		cutoff = now.Add(-s.cfg.StubRetentionWindow)
	}

	candidates, err := s.d.Posts.ListStubsBefore(ctx, cutoff, s.cfg.sweepBatchSize())
	if err != nil {
		return report, fmt.Errorf("list stub candidates: %w", err)
	}
	report.Scanned = len(candidates)

	system := actor.System(s.cfg.SystemUserID)
	for _, p := range candidates {
		flagged, err := s.d.Actions.HasActiveFlags(ctx, p.ID)
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{PostID: p.ID, Err: err.Error()})
			continue
		}
		if !s.policy.StubEligible(p, now, flagged) {
			continue
		}
		err = s.Destroy(ctx, system, p.ID, Options{Context: "stub retention window elapsed"})
		if err != nil {
			logger.Error(ctx, "stub sweep: candidate failed", "post_id", p.ID, "error", err)
			report.Failures = append(report.Failures, SweepFailure{PostID: p.ID, Err: err.Error()})
			continue
		}
		report.Destroyed++
	}

	logger.Info(ctx, "stub sweep finished",
		"scanned", report.Scanned, "destroyed", report.Destroyed, "failed", len(report.Failures))
	return report, nil
}

// capabilityFor decides the actor's role for this post, once. Privilege
// wins over authorship: staff deleting their own post still take the
// hard path.
func (s *Destroyer) capabilityFor(a actor.Actor, p *post.Post) ActorCapability {
	if s.d.Roles.HasModerationPrivilege(a) {
		return CapabilityModerator
	}
	if a.UserID == p.UserID {
		return CapabilityAuthor
	}
	return CapabilityNone
}

func (s *Destroyer) softDelete(ctx context.Context, p *post.Post) error {
	now := s.d.Clock.Now().UTC()
	p.MarkUserDeleted(s.cfg.placeholder(), now)
	if err := s.d.Posts.Update(ctx, p); err != nil {
		return err
	}
	logger.Info(ctx, "post soft-deleted by author", "post_id", p.ID, "topic_id", p.TopicID)
	return nil
}

func (s *Destroyer) hardRemove(ctx context.Context, a actor.Actor, p *post.Post, opts Options) error {
	now := s.d.Clock.Now().UTC()

	// Fan-out runs first so the refreshed counters land in the same
	// update that marks the post removed.
	if err := s.fanout.Run(ctx, p); err != nil {
		return err
	}

	if err := s.aggregates.PostRemoved(ctx, p); err != nil {
		return err
	}

	if a.UserID != p.UserID {
		if err := s.writeAudit(ctx, audit.ActionDeletePost, a, p, opts.Context); err != nil {
			return err
		}
	}

	p.MarkRemoved(a.UserID, now)
	if err := s.d.Posts.Update(ctx, p); err != nil {
		return err
	}

	if err := s.positions.PostRemoved(ctx, p); err != nil {
		return err
	}

	if opts.Permanent {
		if err := s.d.Posts.Delete(ctx, p.ID); err != nil {
			return err
		}
	}

	logger.Info(ctx, "post removed",
		"post_id", p.ID, "topic_id", p.TopicID, "actor_id", a.UserID, "permanent", opts.Permanent)
	return nil
}

// erase finishes a previously removed post off permanently. The
// side-effect fan-out and the aggregate adjustments already ran when
// the post was first removed, so only the audit trail and the row
// erase remain.
func (s *Destroyer) erase(ctx context.Context, a actor.Actor, p *post.Post, opts Options) error {
	if a.UserID != p.UserID {
		if err := s.writeAudit(ctx, audit.ActionDeletePost, a, p, opts.Context); err != nil {
			return err
		}
	}

	if err := s.d.Posts.Delete(ctx, p.ID); err != nil {
		return err
	}

	logger.Info(ctx, "removed post erased", "post_id", p.ID, "topic_id", p.TopicID, "actor_id", a.UserID)
	return nil
}

func (s *Destroyer) recoverStub(ctx context.Context, a actor.Actor, p *post.Post) error {
	now := s.d.Clock.Now().UTC()
	p.RestoreUserDeleted(now)
	if err := s.d.Posts.Update(ctx, p); err != nil {
		return err
	}

	if a.UserID != p.UserID {
		if err := s.writeAudit(ctx, audit.ActionRecoverPost, a, p, ""); err != nil {
			return err
		}
	}

	logger.Info(ctx, "stub recovered", "post_id", p.ID, "actor_id", a.UserID)
	return nil
}

func (s *Destroyer) recoverRemoved(ctx context.Context, a actor.Actor, p *post.Post) error {
	now := s.d.Clock.Now().UTC()
	p.ClearRemoved(now)
	p.RestoreUserDeleted(now)

	if err := s.aggregates.PostRestored(ctx, p); err != nil {
		return err
	}

	if err := s.d.Posts.Update(ctx, p); err != nil {
		return err
	}

	if err := s.positions.PostRestored(ctx, p); err != nil {
		return err
	}

	if a.UserID != p.UserID {
		if err := s.writeAudit(ctx, audit.ActionRecoverPost, a, p, ""); err != nil {
			return err
		}
	}

	logger.Info(ctx, "post recovered", "post_id", p.ID, "actor_id", a.UserID)
	return nil
}

func (s *Destroyer) writeAudit(ctx context.Context, action audit.Action, a actor.Actor, p *post.Post, reason string) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("snapshot post: %w", err)
	}
	entry := &audit.Entry{
		ID:        id.New(),
		Action:    action,
		ActorID:   a.UserID,
		PostID:    p.ID,
		TopicID:   p.TopicID,
		Context:   reason,
		Snapshot:  snapshot,
		CreatedAt: s.d.Clock.Now().UTC(),
	}
	if err := s.d.Audit.Create(ctx, entry); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}
