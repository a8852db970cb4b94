package main

import (
	"context"
	"encoding/json"
	"fmt"

	"agora/internal/core/id"
	"agora/internal/core/tx"
	"agora/internal/domain/lifecycle"
	"agora/internal/domain/post"
	"agora/internal/domain/topic"
	"agora/internal/infrastructure/storage/postgres"
	"agora/pkg/logger"
)

// jobDispatcher routes queued jobs to their handlers.
type jobDispatcher struct {
	posts  post.Repository
	topics topic.Repository
	tx     tx.Manager
}

func newJobDispatcher(posts post.Repository, topics topic.Repository, txm tx.Manager) *jobDispatcher {
	return &jobDispatcher{posts: posts, topics: topics, tx: txm}
}

// Handle processes one job. Unknown job names are dropped, not retried:
// retrying cannot make them known.
func (d *jobDispatcher) Handle(ctx context.Context, job *postgres.Job) error {
	switch job.Name {
	case lifecycle.JobRefeatureUsers:
		return d.refeatureUsers(ctx, job.Payload)
	default:
		logger.Warn(ctx, "unknown job dropped", "job", job.Name, "job_id", job.ID)
		return nil
	}
}

type refeaturePayload struct {
	TopicID       id.ID `json:"topic_id"`
	RemovedPostID id.ID `json:"removed_post_id"`
}

// refeatureUsers repairs the posted markers of a topic after one of its
// posts disappeared. The synchronous path already clears the removed
// author's marker; this pass catches markers left stale by earlier
// partial failures.
func (d *jobDispatcher) refeatureUsers(ctx context.Context, payload []byte) error {
	var p refeaturePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("unmarshal refeature payload: %w", err)
	}

	return d.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		participants, err := d.topics.ListParticipants(ctx, p.TopicID)
		if err != nil {
			return err
		}

		for _, participant := range participants {
			if !participant.Posted {
				continue
			}
			has, err := d.posts.HasRemainingByUser(ctx, p.TopicID, participant.UserID)
			if err != nil {
				return err
			}
			if has {
				continue
			}
			participant.Posted = false
			if err := d.topics.SaveParticipant(ctx, participant); err != nil {
				return err
			}
			logger.Debug(ctx, "posted marker cleared",
				"topic_id", p.TopicID, "user_id", participant.UserID)
		}

		return nil
	})
}
