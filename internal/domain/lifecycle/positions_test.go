package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/core/id"
	"agora/internal/domain/topic"
)

func TestPositions_DestroyingLastPostRewindsTopicAndReaders(t *testing.T) {
	f := newFixture(t, testConfig())
	alice := f.addUser("alice")
	bob := f.addUser("bob")
	carol := f.addUser("carol")
	staff := f.addUser("mod")

	top := f.addTopic(alice)
	first := f.addPost(top, alice, "opening post")
	second := f.addPost(top, bob, "a reply")

	// Carol read both posts; alice only her own.
	f.addParticipant(top, carol, 2, 2, false)
	f.addParticipant(top, alice, 1, 1, true)
	f.addParticipant(top, bob, 2, 2, true)

	err := f.destroyer.Destroy(context.Background(), moderatorActor(staff), second.ID, Options{})
	require.NoError(t, err)

	got := f.s.topics[top.ID]
	assert.Equal(t, alice.ID, got.LastPostUserID)
	assert.True(t, got.LastPostedAt.Equal(first.CreatedAt))

	byUser := participantIndex(f)
	assert.Equal(t, 1, byUser[carol.ID].LastReadPostNumber)
	assert.Equal(t, 1, byUser[carol.ID].HighestSeenPostNumber)
	assert.Equal(t, 1, byUser[alice.ID].LastReadPostNumber)

	// Bob's only post is gone: read markers rewind and posted clears.
	assert.Equal(t, 1, byUser[bob.ID].LastReadPostNumber)
	assert.Equal(t, 1, byUser[bob.ID].HighestSeenPostNumber)
	assert.False(t, byUser[bob.ID].Posted)
	assert.True(t, byUser[alice.ID].Posted)
}

func TestPositions_DestroyingMiddlePostLeavesLastPostAlone(t *testing.T) {
	f := newFixture(t, testConfig())
	alice := f.addUser("alice")
	bob := f.addUser("bob")
	staff := f.addUser("mod")

	top := f.addTopic(alice)
	f.addPost(top, alice, "opening post")
	middle := f.addPost(top, bob, "middle reply")
	last := f.addPost(top, alice, "latest reply")

	f.addParticipant(top, bob, 3, 3, true)

	err := f.destroyer.Destroy(context.Background(), moderatorActor(staff), middle.ID, Options{})
	require.NoError(t, err)

	got := f.s.topics[top.ID]
	assert.Equal(t, alice.ID, got.LastPostUserID)
	assert.True(t, got.LastPostedAt.Equal(last.CreatedAt))

	// Bob had read past the removed post; position 3 still exists.
	byUser := participantIndex(f)
	assert.Equal(t, 3, byUser[bob.ID].LastReadPostNumber)
	assert.False(t, byUser[bob.ID].Posted)
}

func TestPositions_GapsAreNeverRenumbered(t *testing.T) {
	f := newFixture(t, testConfig())
	alice := f.addUser("alice")
	staff := f.addUser("mod")

	top := f.addTopic(alice)
	f.addPost(top, alice, "one")
	two := f.addPost(top, alice, "two")
	three := f.addPost(top, alice, "three")

	require.NoError(t, f.destroyer.Destroy(context.Background(), moderatorActor(staff), two.ID, Options{Permanent: true}))

	nums, err := f.posts.RemainingNumbers(context.Background(), top.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, nums)
	assert.Equal(t, 3, f.s.posts[three.ID].PostNumber)
	assert.Equal(t, 3, f.s.topics[top.ID].HighestPostNumber)
}

func TestPositions_RecoverRestoresLastPostMarker(t *testing.T) {
	f := newFixture(t, testConfig())
	alice := f.addUser("alice")
	bob := f.addUser("bob")
	staff := f.addUser("mod")

	top := f.addTopic(alice)
	f.addPost(top, alice, "opening post")
	second := f.addPost(top, bob, "a reply")

	require.NoError(t, f.destroyer.Destroy(context.Background(), moderatorActor(staff), second.ID, Options{}))
	require.Equal(t, alice.ID, f.s.topics[top.ID].LastPostUserID)

	require.NoError(t, f.destroyer.Recover(context.Background(), moderatorActor(staff), second.ID))

	got := f.s.topics[top.ID]
	assert.Equal(t, bob.ID, got.LastPostUserID)
	assert.True(t, got.LastPostedAt.Equal(second.CreatedAt))
}

func TestHighestAtOrBelow(t *testing.T) {
	nums := []int{1, 3, 7}
	assert.Equal(t, 7, highestAtOrBelow(nums, 10))
	assert.Equal(t, 3, highestAtOrBelow(nums, 6))
	assert.Equal(t, 1, highestAtOrBelow(nums, 1))
	assert.Equal(t, 0, highestAtOrBelow(nums, 0))
	assert.Equal(t, 0, highestAtOrBelow(nil, 5))
}

func participantIndex(f *fixture) map[id.ID]*topic.Participant {
	byUser := make(map[id.ID]*topic.Participant, len(f.s.participants))
	for _, p := range f.s.participants {
		byUser[p.UserID] = p
	}
	return byUser
}
