package lifecycle

import (
	"context"
	"fmt"

	"agora/internal/domain/post"
	"agora/internal/domain/topic"
)

// PositionRecalculator repairs a topic's derived position data after a
// post is removed or restored: the last-poster marker and every affected
// participant's read position.
type PositionRecalculator struct {
	posts  post.Repository
	topics topic.Repository
}

// NewPositionRecalculator wires the recalculator to its repositories.
func NewPositionRecalculator(posts post.Repository, topics topic.Repository) *PositionRecalculator {
	return &PositionRecalculator{posts: posts, topics: topics}
}

// PostRemoved recomputes topic positions after a hard removal.
//
// The last-poster marker moves back to the latest remaining post, which
// is the topic's original post when no replies remain. Participants whose
// read markers pointed at or beyond the removed post roll back to the
// latest remaining post they had actually read, and a participant loses
// the posted flag when their only posts were all removed.
func (r *PositionRecalculator) PostRemoved(ctx context.Context, removed *post.Post) error {
	t, err := r.topics.GetByID(ctx, removed.TopicID)
	if err != nil {
		return fmt.Errorf("load topic: %w", err)
	}

	if err := r.resetLastPost(ctx, t); err != nil {
		return err
	}

	return r.rollBackParticipants(ctx, t, removed)
}

// PostRestored recomputes the last-poster marker after a recovery. Read
// positions never roll forward: participants discover restored posts by
// reading them.
func (r *PositionRecalculator) PostRestored(ctx context.Context, restored *post.Post) error {
	t, err := r.topics.GetByID(ctx, restored.TopicID)
	if err != nil {
		return fmt.Errorf("load topic: %w", err)
	}
	return r.resetLastPost(ctx, t)
}

func (r *PositionRecalculator) resetLastPost(ctx context.Context, t *topic.Topic) error {
	latest, err := r.posts.LatestRemaining(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("find latest remaining post: %w", err)
	}
	if latest == nil {
		// Even the original post is gone; nothing left to point at.
		return nil
	}

	if t.LastPostUserID == latest.UserID && t.LastPostedAt.Equal(latest.CreatedAt) {
		return nil
	}

	t.LastPostUserID = latest.UserID
	t.LastPostedAt = latest.CreatedAt
	if err := r.topics.Update(ctx, t); err != nil {
		return fmt.Errorf("update topic last post: %w", err)
	}
	return nil
}

func (r *PositionRecalculator) rollBackParticipants(ctx context.Context, t *topic.Topic, removed *post.Post) error {
	numbers, err := r.posts.RemainingNumbers(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("list remaining post numbers: %w", err)
	}

	participants, err := r.topics.ListParticipants(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}

	for _, part := range participants {
		changed := false

		if part.LastReadPostNumber >= removed.PostNumber {
			if n := highestAtOrBelow(numbers, part.LastReadPostNumber); n != part.LastReadPostNumber {
				part.LastReadPostNumber = n
				changed = true
			}
		}
		if part.HighestSeenPostNumber >= removed.PostNumber {
			if n := highestAtOrBelow(numbers, part.HighestSeenPostNumber); n != part.HighestSeenPostNumber {
				part.HighestSeenPostNumber = n
				changed = true
			}
		}

		if part.Posted && part.UserID == removed.UserID {
			remains, err := r.posts.HasRemainingByUser(ctx, t.ID, part.UserID)
			if err != nil {
				return fmt.Errorf("check remaining posts by user: %w", err)
			}
			if !remains {
				part.Posted = false
				changed = true
			}
		}

		if changed {
			if err := r.topics.SaveParticipant(ctx, part); err != nil {
				return fmt.Errorf("save participant: %w", err)
			}
		}
	}

	return nil
}

// highestAtOrBelow returns the largest number in the ascending slice that
// is <= limit, or 0 when none qualifies.
func highestAtOrBelow(numbers []int, limit int) int {
	best := 0
	for _, n := range numbers {
		if n > limit {
			break
		}
		best = n
	}
	return best
}
