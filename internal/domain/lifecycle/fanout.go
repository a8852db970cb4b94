package lifecycle

import (
	"context"
	"fmt"

	"github.com/juju/clock"

	"agora/internal/core/id"
	"agora/internal/domain/activity"
	"agora/internal/domain/moderation"
	"agora/internal/domain/notification"
	"agora/internal/domain/post"
	"agora/internal/domain/topic"
	"agora/pkg/logger"
)

// CleanupFunc is one idempotent cleanup step applied to a post being
// hard-removed. Steps run in order inside the removal transaction.
type CleanupFunc func(ctx context.Context, p *post.Post) error

type cleanupStep struct {
	name string
	run  CleanupFunc
}

// Fanout triggers the dependent cleanups of a hard removal: derived rows
// are purged, flags are resolved, cached counters refreshed and the
// re-feature job enqueued. Every step must tolerate rerunning against a
// post whose rows are already gone.
type Fanout struct {
	steps []cleanupStep
}

// NewFanout assembles the ordered cleanup pipeline.
func NewFanout(
	notifications notification.Repository,
	topics topic.Repository,
	actions moderation.Repository,
	log activity.Repository,
	aggregates *AggregateUpdater,
	queue JobQueue,
	clk clock.Clock,
	systemUserID id.ID,
) *Fanout {
	f := &Fanout{}

	f.add("purge notifications", func(ctx context.Context, p *post.Post) error {
		_, err := notifications.DeleteByPost(ctx, p.ID)
		return err
	})

	f.add("purge mentions", func(ctx context.Context, p *post.Post) error {
		_, err := notifications.DeleteMentionsByPost(ctx, p.ID)
		return err
	})

	f.add("purge topic links", func(ctx context.Context, p *post.Post) error {
		_, err := topics.DeleteLinksByPost(ctx, p.ID)
		return err
	})

	f.add("purge engagement actions", func(ctx context.Context, p *post.Post) error {
		_, err := actions.DeleteNonResolvingByPost(ctx, p.ID)
		return err
	})

	// Flags are evidence of moderation judgement: removal of the post
	// counts as agreeing with them, never as erasing them.
	f.add("resolve flags", func(ctx context.Context, p *post.Post) error {
		all, err := actions.ListByPost(ctx, p.ID)
		if err != nil {
			return err
		}
		now := clk.Now().UTC()
		for _, a := range all {
			if !a.Kind.Resolving() || a.Resolved() {
				continue
			}
			a.Agree(systemUserID, now)
			if err := actions.Save(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})

	f.add("purge activity log", func(ctx context.Context, p *post.Post) error {
		_, err := log.DeleteByPost(ctx, p.ID)
		return err
	})

	f.add("refresh action counters", func(ctx context.Context, p *post.Post) error {
		return aggregates.RefreshActionCounts(ctx, p)
	})

	f.add("signal refeature users", func(ctx context.Context, p *post.Post) error {
		return queue.Enqueue(ctx, JobRefeatureUsers, map[string]any{
			"topic_id":        p.TopicID,
			"removed_post_id": p.ID,
		})
	})

	return f
}

func (f *Fanout) add(name string, run CleanupFunc) {
	f.steps = append(f.steps, cleanupStep{name: name, run: run})
}

// Run executes every cleanup step in order. The first failing step aborts
// the pipeline; the surrounding transaction rolls the partial work back.
func (f *Fanout) Run(ctx context.Context, p *post.Post) error {
	for _, step := range f.steps {
		if err := step.run(ctx, p); err != nil {
			return fmt.Errorf("cleanup %q: %w", step.name, err)
		}
		logger.Debug(ctx, "cleanup step done", "step", step.name, "post_id", p.ID)
	}
	return nil
}
