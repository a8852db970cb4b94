package lifecycle

import (
	"context"
	"sort"
	"time"

	"agora/internal/core/apperror"
	"agora/internal/core/id"
	"agora/internal/domain/activity"
	"agora/internal/domain/audit"
	"agora/internal/domain/moderation"
	"agora/internal/domain/notification"
	"agora/internal/domain/post"
	"agora/internal/domain/topic"
	"agora/internal/domain/user"
)

// In-memory collaborators for orchestrator tests. Updates bump versions
// the same way the postgres repositories do.

type memState struct {
	posts         map[id.ID]*post.Post
	topics        map[id.ID]*topic.Topic
	users         map[id.ID]*user.User
	actions       map[id.ID]*moderation.Action
	participants  []*topic.Participant
	links         []*topic.Link
	notifications []*notification.Notification
	mentions      []*notification.Mention
	activity      []*activity.Entry
	audits        []*audit.Entry
	jobs          []queuedJob
}

type queuedJob struct {
	name    string
	payload any
}

func newMemState() *memState {
	return &memState{
		posts:   make(map[id.ID]*post.Post),
		topics:  make(map[id.ID]*topic.Topic),
		users:   make(map[id.ID]*user.User),
		actions: make(map[id.ID]*moderation.Action),
	}
}

// --- post.Repository ---

type memPosts struct {
	s         *memState
	updateErr map[id.ID]error
}

func (r *memPosts) GetByID(_ context.Context, postID id.ID) (*post.Post, error) {
	p, ok := r.s.posts[postID]
	if !ok {
		return nil, apperror.NewNotFound("post", postID.String())
	}
	return p, nil
}

func (r *memPosts) Update(_ context.Context, p *post.Post) error {
	if err := r.updateErr[p.ID]; err != nil {
		return err
	}
	if _, ok := r.s.posts[p.ID]; !ok {
		return apperror.NewNotFound("post", p.ID.String())
	}
	p.Version++
	r.s.posts[p.ID] = p
	return nil
}

func (r *memPosts) Delete(_ context.Context, postID id.ID) error {
	if _, ok := r.s.posts[postID]; !ok {
		return apperror.NewNotFound("post", postID.String())
	}
	delete(r.s.posts, postID)
	return nil
}

func (r *memPosts) ListHiddenBefore(_ context.Context, cutoff time.Time, limit int) ([]*post.Post, error) {
	var out []*post.Post
	for _, p := range r.s.posts {
		if p.Hidden && p.HiddenAt != nil && !p.HiddenAt.After(cutoff) && !p.IsRemoved() {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memPosts) ListStubsBefore(_ context.Context, cutoff time.Time, limit int) ([]*post.Post, error) {
	var out []*post.Post
	for _, p := range r.s.posts {
		if p.IsStub() && !p.UpdatedAt.After(cutoff) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memPosts) LatestRemaining(_ context.Context, topicID id.ID) (*post.Post, error) {
	var latest *post.Post
	for _, p := range r.s.posts {
		if p.TopicID != topicID || p.IsRemoved() {
			continue
		}
		if latest == nil || p.PostNumber > latest.PostNumber {
			latest = p
		}
	}
	return latest, nil
}

func (r *memPosts) RemainingNumbers(_ context.Context, topicID id.ID) ([]int, error) {
	var nums []int
	for _, p := range r.s.posts {
		if p.TopicID == topicID && !p.IsRemoved() {
			nums = append(nums, p.PostNumber)
		}
	}
	sort.Ints(nums)
	return nums, nil
}

func (r *memPosts) HasRemainingByUser(_ context.Context, topicID, userID id.ID) (bool, error) {
	for _, p := range r.s.posts {
		if p.TopicID == topicID && p.UserID == userID && !p.IsRemoved() {
			return true, nil
		}
	}
	return false, nil
}

// --- topic.Repository ---

type memTopics struct {
	s *memState
}

func (r *memTopics) GetByID(_ context.Context, topicID id.ID) (*topic.Topic, error) {
	t, ok := r.s.topics[topicID]
	if !ok {
		return nil, apperror.NewNotFound("topic", topicID.String())
	}
	return t, nil
}

func (r *memTopics) Update(_ context.Context, t *topic.Topic) error {
	if _, ok := r.s.topics[t.ID]; !ok {
		return apperror.NewNotFound("topic", t.ID.String())
	}
	t.Version++
	r.s.topics[t.ID] = t
	return nil
}

func (r *memTopics) ListParticipants(_ context.Context, topicID id.ID) ([]*topic.Participant, error) {
	var out []*topic.Participant
	for _, p := range r.s.participants {
		if p.TopicID == topicID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memTopics) SaveParticipant(_ context.Context, p *topic.Participant) error {
	for i, existing := range r.s.participants {
		if existing.TopicID == p.TopicID && existing.UserID == p.UserID {
			r.s.participants[i] = p
			return nil
		}
	}
	r.s.participants = append(r.s.participants, p)
	return nil
}

func (r *memTopics) DeleteLinksByPost(_ context.Context, postID id.ID) (int64, error) {
	var kept []*topic.Link
	var removed int64
	for _, l := range r.s.links {
		if l.PostID == postID {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	r.s.links = kept
	return removed, nil
}

// --- user.Repository ---

type memUsers struct {
	s *memState
}

func (r *memUsers) GetByID(_ context.Context, userID id.ID) (*user.User, error) {
	u, ok := r.s.users[userID]
	if !ok {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	return u, nil
}

func (r *memUsers) AdjustPostCount(_ context.Context, userID id.ID, delta int) error {
	u, ok := r.s.users[userID]
	if !ok {
		return apperror.NewNotFound("user", userID.String())
	}
	u.PostCount += delta
	if u.PostCount < 0 {
		u.PostCount = 0
	}
	return nil
}

// --- moderation.Repository ---

type memActions struct {
	s        *memState
	flagsErr map[id.ID]error
}

func (r *memActions) ListByPost(_ context.Context, postID id.ID) ([]*moderation.Action, error) {
	var out []*moderation.Action
	for _, a := range r.s.actions {
		if a.PostID == postID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memActions) Save(_ context.Context, a *moderation.Action) error {
	r.s.actions[a.ID] = a
	return nil
}

func (r *memActions) DeleteNonResolvingByPost(_ context.Context, postID id.ID) (int64, error) {
	var removed int64
	for actionID, a := range r.s.actions {
		if a.PostID == postID && !a.Kind.Resolving() {
			delete(r.s.actions, actionID)
			removed++
		}
	}
	return removed, nil
}

func (r *memActions) HasActiveFlags(_ context.Context, postID id.ID) (bool, error) {
	if err := r.flagsErr[postID]; err != nil {
		return false, err
	}
	for _, a := range r.s.actions {
		if a.PostID == postID && a.Kind.Blocking() && !a.Resolved() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memActions) CountByKind(_ context.Context, postID id.ID) (map[moderation.Kind]int, error) {
	counts := make(map[moderation.Kind]int)
	for _, a := range r.s.actions {
		if a.PostID == postID {
			counts[a.Kind]++
		}
	}
	return counts, nil
}

// --- notification.Repository ---

type memNotifications struct {
	s *memState
}

func (r *memNotifications) DeleteByPost(_ context.Context, postID id.ID) (int64, error) {
	var kept []*notification.Notification
	var removed int64
	for _, n := range r.s.notifications {
		if n.PostID == postID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.s.notifications = kept
	return removed, nil
}

func (r *memNotifications) DeleteMentionsByPost(_ context.Context, postID id.ID) (int64, error) {
	var kept []*notification.Mention
	var removed int64
	for _, m := range r.s.mentions {
		if m.PostID == postID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	r.s.mentions = kept
	return removed, nil
}

// --- activity.Repository ---

type memActivity struct {
	s *memState
}

func (r *memActivity) DeleteByPost(_ context.Context, postID id.ID) (int64, error) {
	var kept []*activity.Entry
	var removed int64
	for _, e := range r.s.activity {
		if e.PostID == postID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.s.activity = kept
	return removed, nil
}

// --- audit.Repository ---

type memAudit struct {
	s *memState
}

func (r *memAudit) Create(_ context.Context, e *audit.Entry) error {
	r.s.audits = append(r.s.audits, e)
	return nil
}

// --- JobQueue ---

type memQueue struct {
	s *memState
}

func (q *memQueue) Enqueue(_ context.Context, job string, payload any) error {
	q.s.jobs = append(q.s.jobs, queuedJob{name: job, payload: payload})
	return nil
}

// --- tx.Manager ---

type memTx struct{}

func (memTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
