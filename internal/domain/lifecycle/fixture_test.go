package lifecycle

import (
	"fmt"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"agora/internal/core/actor"
	"agora/internal/core/id"
	"agora/internal/core/security"
	"agora/internal/domain/activity"
	"agora/internal/domain/moderation"
	"agora/internal/domain/notification"
	"agora/internal/domain/post"
	"agora/internal/domain/topic"
	"agora/internal/domain/user"
)

var fixtureEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t *testing.T

	s       *memState
	posts   *memPosts
	actions *memActions
	clk     *testclock.Clock

	destroyer *Destroyer
	systemID  id.ID
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	s := newMemState()
	clk := testclock.NewClock(fixtureEpoch)
	systemID := id.New()
	cfg.SystemUserID = systemID

	posts := &memPosts{s: s, updateErr: map[id.ID]error{}}
	actions := &memActions{s: s, flagsErr: map[id.ID]error{}}

	destroyer := NewDestroyer(cfg, Deps{
		Posts:         posts,
		Topics:        &memTopics{s: s},
		Users:         &memUsers{s: s},
		Actions:       actions,
		Notifications: &memNotifications{s: s},
		Activity:      &memActivity{s: s},
		Audit:         &memAudit{s: s},
		Queue:         &memQueue{s: s},
		Tx:            memTx{},
		Roles:         security.StaffPolicy{},
		Clock:         clk,
	})

	return &fixture{
		t:         t,
		s:         s,
		posts:     posts,
		actions:   actions,
		clk:       clk,
		destroyer: destroyer,
		systemID:  systemID,
	}
}

func (f *fixture) addUser(name string) *user.User {
	u := &user.User{ID: id.New(), Username: name}
	f.s.users[u.ID] = u
	return u
}

func (f *fixture) addTopic(author *user.User) *topic.Topic {
	now := f.clk.Now().UTC()
	t := &topic.Topic{
		ID:        id.New(),
		Title:     fmt.Sprintf("topic by %s", author.Username),
		UserID:    author.ID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.s.topics[t.ID] = t
	return t
}

// addPost appends a post to the topic, keeping topic counters and the
// author's post count consistent the way the posting pipeline would.
func (f *fixture) addPost(t *topic.Topic, author *user.User, raw string) *post.Post {
	f.clk.Advance(time.Minute)
	now := f.clk.Now().UTC()

	t.HighestPostNumber++
	p := &post.Post{
		ID:         id.New(),
		TopicID:    t.ID,
		UserID:     author.ID,
		PostNumber: t.HighestPostNumber,
		Raw:        raw,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.s.posts[p.ID] = p

	t.PostsCount++
	t.LastPostUserID = author.ID
	t.LastPostedAt = now
	author.PostCount++

	return p
}

func (f *fixture) addParticipant(t *topic.Topic, u *user.User, lastRead, highestSeen int, posted bool) *topic.Participant {
	p := &topic.Participant{
		TopicID:               t.ID,
		UserID:                u.ID,
		Posted:                posted,
		LastReadPostNumber:    lastRead,
		HighestSeenPostNumber: highestSeen,
	}
	f.s.participants = append(f.s.participants, p)
	return p
}

func (f *fixture) addAction(p *post.Post, u *user.User, kind moderation.Kind) *moderation.Action {
	a := &moderation.Action{
		ID:        id.New(),
		PostID:    p.ID,
		UserID:    u.ID,
		Kind:      kind,
		CreatedAt: f.clk.Now().UTC(),
	}
	f.s.actions[a.ID] = a
	return a
}

func (f *fixture) addNotification(p *post.Post, u *user.User, kind notification.Kind) {
	f.s.notifications = append(f.s.notifications, &notification.Notification{
		ID:      id.New(),
		UserID:  u.ID,
		TopicID: p.TopicID,
		PostID:  p.ID,
		Kind:    kind,
	})
}

func (f *fixture) addMention(p *post.Post, mentioned *user.User) {
	f.s.mentions = append(f.s.mentions, &notification.Mention{
		ID:              id.New(),
		PostID:          p.ID,
		MentionedUserID: mentioned.ID,
	})
}

func (f *fixture) addLink(t *topic.Topic, p *post.Post, url string) {
	f.s.links = append(f.s.links, &topic.Link{
		ID:      id.New(),
		TopicID: t.ID,
		PostID:  p.ID,
		URL:     url,
	})
}

func (f *fixture) addActivity(p *post.Post, u *user.User, kind activity.ActionType) {
	f.s.activity = append(f.s.activity, &activity.Entry{
		ID:         id.New(),
		UserID:     u.ID,
		ActionType: kind,
		TopicID:    p.TopicID,
		PostID:     p.ID,
	})
}

func (f *fixture) hide(p *post.Post, at time.Time) {
	p.Hidden = true
	hiddenAt := at
	p.HiddenAt = &hiddenAt
}

func memberActor(u *user.User) actor.Actor {
	return actor.Actor{UserID: u.ID, Username: u.Username, TrustLevel: 1}
}

func moderatorActor(u *user.User) actor.Actor {
	return actor.Actor{UserID: u.ID, Username: u.Username, Moderator: true, TrustLevel: 4}
}
