package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/core/apperror"
	"agora/internal/core/id"
	"agora/internal/domain/activity"
	"agora/internal/domain/moderation"
	"agora/internal/domain/notification"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DeletedPlaceholder = "(removed by author)"
	return cfg
}

func TestDestroy_AuthorSoftDeletesWithinGracePeriod(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "original content")

	err := f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{})
	require.NoError(t, err)

	got := f.s.posts[p.ID]
	assert.True(t, got.UserDeleted)
	assert.Equal(t, "(removed by author)", got.Raw)
	require.NotNil(t, got.RawBackup)
	assert.Equal(t, "original content", *got.RawBackup)
	assert.Nil(t, got.DeletedAt)
	assert.Nil(t, got.DeletedByID)
	assert.Equal(t, 2, got.Version)

	// Soft delete leaves the public aggregates alone.
	assert.Equal(t, 1, f.s.topics[top.ID].PostsCount)
	assert.Equal(t, 1, f.s.users[author.ID].PostCount)
	assert.Empty(t, f.s.audits)
}

func TestDestroy_AuthorWithZeroGracePeriodHardRemoves(t *testing.T) {
	cfg := testConfig()
	cfg.StubRetentionWindow = 0
	f := newFixture(t, cfg)
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "gone for good")

	err := f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{})
	require.NoError(t, err)

	got := f.s.posts[p.ID]
	require.NotNil(t, got.DeletedAt)
	require.NotNil(t, got.DeletedByID)
	assert.Equal(t, author.ID, *got.DeletedByID)
	assert.Equal(t, 0, f.s.topics[top.ID].PostsCount)
	assert.Equal(t, 0, f.s.users[author.ID].PostCount)

	// The author removed their own post: nothing to audit.
	assert.Empty(t, f.s.audits)
}

func TestDestroy_ModeratorHardRemovesWithFullFanout(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	reader := f.addUser("bob")
	staff := f.addUser("mod")
	top := f.addTopic(author)
	p := f.addPost(top, author, "spammy content")

	f.addAction(p, reader, moderation.KindBookmark)
	f.addAction(p, reader, moderation.KindLike)
	flag := f.addAction(p, reader, moderation.KindOffTopic)
	f.addNotification(p, reader, notification.KindMentioned)
	f.addMention(p, reader)
	f.addLink(top, p, "https://example.com")
	f.addActivity(p, reader, activity.ActionBookmark)

	err := f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{Context: "flagged spam"})
	require.NoError(t, err)

	got := f.s.posts[p.ID]
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, staff.ID, *got.DeletedByID)

	// Engagement rows are purged with the post.
	assert.Empty(t, f.s.notifications)
	assert.Empty(t, f.s.mentions)
	assert.Empty(t, f.s.links)
	assert.Empty(t, f.s.activity)
	assert.Equal(t, 0, got.BookmarkCount)
	assert.Equal(t, 0, got.LikeCount)

	// Flags survive, resolved rather than erased.
	survivor := f.s.actions[flag.ID]
	require.NotNil(t, survivor)
	require.NotNil(t, survivor.AgreedAt)
	assert.Equal(t, f.systemID, *survivor.AgreedByID)
	assert.Equal(t, 1, got.OffTopicCount)

	// Aggregates and audit trail.
	assert.Equal(t, 0, f.s.topics[top.ID].PostsCount)
	assert.Equal(t, 0, f.s.users[author.ID].PostCount)
	require.Len(t, f.s.audits, 1)
	assert.Equal(t, staff.ID, f.s.audits[0].ActorID)
	assert.Equal(t, "flagged spam", f.s.audits[0].Context)

	// The re-feature job is enqueued in the same transaction.
	require.Len(t, f.s.jobs, 1)
	assert.Equal(t, JobRefeatureUsers, f.s.jobs[0].name)
}

func TestDestroy_WithoutPrivilegeIsForbidden(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	stranger := f.addUser("mallory")
	top := f.addTopic(author)
	p := f.addPost(top, author, "not yours")

	err := f.destroyer.Destroy(context.Background(), memberActor(stranger), p.ID, Options{})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	got := f.s.posts[p.ID]
	assert.Nil(t, got.DeletedAt)
	assert.False(t, got.UserDeleted)
	assert.Equal(t, 1, got.Version)
}

func TestDestroy_MissingPostIsNotFound(t *testing.T) {
	f := newFixture(t, testConfig())
	staff := f.addUser("mod")

	err := f.destroyer.Destroy(context.Background(), moderatorActor(staff), id.New(), Options{})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDestroy_SecondCallConvergesToNoOp(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	staff := f.addUser("mod")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{}))
	require.NoError(t, f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{}))

	assert.Len(t, f.s.audits, 1)
	assert.Len(t, f.s.jobs, 1)
	assert.Equal(t, 0, f.s.topics[top.ID].PostsCount)
}

func TestDestroy_AuthorRetryOnStubKeepsOriginalContent(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "original content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{}))
	versionAfterFirst := f.s.posts[p.ID].Version

	// Stale-client retry of the same delete.
	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{}))

	got := f.s.posts[p.ID]
	assert.Equal(t, versionAfterFirst, got.Version)
	require.NotNil(t, got.RawBackup)
	assert.Equal(t, "original content", *got.RawBackup)

	require.NoError(t, f.destroyer.Recover(context.Background(), memberActor(author), p.ID))
	assert.Equal(t, "original content", f.s.posts[p.ID].Raw)
}

func TestDestroy_PermanentErasesRow(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	staff := f.addUser("mod")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")

	err := f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{Permanent: true})
	require.NoError(t, err)

	_, exists := f.s.posts[p.ID]
	assert.False(t, exists)
	// Judged content survives in the audit snapshot.
	require.Len(t, f.s.audits, 1)
	assert.NotEmpty(t, f.s.audits[0].Snapshot)
}

func TestDestroy_PermanentAfterRemoveAdjustsAggregatesOnce(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	staff := f.addUser("mod")
	top := f.addTopic(author)
	f.addPost(top, author, "first")
	p := f.addPost(top, author, "second")

	require.NoError(t, f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{}))
	assert.Equal(t, 1, f.s.topics[top.ID].PostsCount)
	assert.Equal(t, 1, f.s.users[author.ID].PostCount)

	// Escalating the removal to a permanent erase only drops the row.
	require.NoError(t, f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{Permanent: true}))

	_, exists := f.s.posts[p.ID]
	assert.False(t, exists)
	assert.Equal(t, 1, f.s.topics[top.ID].PostsCount)
	assert.Equal(t, 1, f.s.users[author.ID].PostCount)

	// One fan-out job from the first removal; both steps audited.
	assert.Len(t, f.s.jobs, 1)
	assert.Len(t, f.s.audits, 2)
}

func TestDestroy_PermanentOnRemovedRequiresPrivilege(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	staff := f.addUser("mod")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{}))

	err := f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{Permanent: true})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	_, exists := f.s.posts[p.ID]
	assert.True(t, exists)
}

func TestDestroy_RemovedTopicDoesNotBlockCleanup(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	reader := f.addUser("bob")
	staff := f.addUser("mod")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")
	f.addNotification(p, reader, notification.KindReplied)

	deletedAt := f.clk.Now().UTC()
	top.DeletedAt = &deletedAt

	err := f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{})
	require.NoError(t, err)
	assert.Empty(t, f.s.notifications)
	require.NotNil(t, f.s.posts[p.ID].DeletedAt)
}

func TestRecover_StubRestoresExactContent(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "original content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{}))
	require.NoError(t, f.destroyer.Recover(context.Background(), memberActor(author), p.ID))

	got := f.s.posts[p.ID]
	assert.Equal(t, "original content", got.Raw)
	assert.Nil(t, got.RawBackup)
	assert.False(t, got.UserDeleted)
	// One bump for the delete, one for the recovery.
	assert.Equal(t, 3, got.Version)
}

func TestRecover_RemovedPostReversesAggregates(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	reader := f.addUser("bob")
	staff := f.addUser("mod")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")
	f.addNotification(p, reader, notification.KindMentioned)

	require.NoError(t, f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{}))
	require.NoError(t, f.destroyer.Recover(context.Background(), moderatorActor(staff), p.ID))

	got := f.s.posts[p.ID]
	assert.Nil(t, got.DeletedAt)
	assert.Nil(t, got.DeletedByID)
	assert.Equal(t, 1, f.s.topics[top.ID].PostsCount)
	assert.Equal(t, 1, f.s.users[author.ID].PostCount)

	// Purged side effects stay purged.
	assert.Empty(t, f.s.notifications)

	// Both the delete and the recovery are audited.
	require.Len(t, f.s.audits, 2)
	assert.Equal(t, "recover_post", string(f.s.audits[1].Action))
}

func TestRecover_RemovedPostRequiresPrivilege(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	staff := f.addUser("mod")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), moderatorActor(staff), p.ID, Options{}))

	err := f.destroyer.Recover(context.Background(), memberActor(author), p.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestRecover_StubByStrangerIsForbidden(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	stranger := f.addUser("mallory")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{}))

	err := f.destroyer.Recover(context.Background(), memberActor(stranger), p.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestRecover_LivePostIsRejected(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "alive and well")

	err := f.destroyer.Recover(context.Background(), memberActor(author), p.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Equal(t, 1, f.s.posts[p.ID].Version)
}

func TestDestroyOldHiddenPosts_RemovesOnlyStaleHidden(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	stale := f.addPost(top, author, "hidden long ago")
	fresh := f.addPost(top, author, "hidden recently")
	visible := f.addPost(top, author, "never hidden")

	now := f.clk.Now().UTC()
	f.hide(stale, now.Add(-31*24*time.Hour))
	f.hide(fresh, now.Add(-29*24*time.Hour))

	report, err := f.destroyer.DestroyOldHiddenPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Destroyed)
	assert.Empty(t, report.Failures)

	require.NotNil(t, f.s.posts[stale.ID].DeletedAt)
	assert.Equal(t, f.systemID, *f.s.posts[stale.ID].DeletedByID)
	assert.Nil(t, f.s.posts[fresh.ID].DeletedAt)
	assert.Nil(t, f.s.posts[visible.ID].DeletedAt)
}

func TestDestroyOldHiddenPosts_RehideResetsClock(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "hidden, unhidden, hidden again")

	// Hidden 40 days ago, unhidden, re-hidden yesterday.
	now := f.clk.Now().UTC()
	f.hide(p, now.Add(-24*time.Hour))

	report, err := f.destroyer.DestroyOldHiddenPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Destroyed)
	assert.Nil(t, f.s.posts[p.ID].DeletedAt)
}

func TestDestroyStubs_InclusiveWindowBoundary(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{}))

	// Exactly the retention window later: elapsed >= window, so eligible.
	f.clk.Advance(f.destroyer.cfg.StubRetentionWindow)

	report, err := f.destroyer.DestroyStubs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Destroyed)
	require.NotNil(t, f.s.posts[p.ID].DeletedAt)
	assert.Equal(t, f.systemID, *f.s.posts[p.ID].DeletedByID)
}

func TestDestroyStubs_WindowNotYetElapsed(t *testing.T) {
	// 70 minutes elapsed against a 72 hour window: kept.
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{}))
	f.clk.Advance(70 * time.Minute)

	report, err := f.destroyer.DestroyStubs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Destroyed)
	assert.Nil(t, f.s.posts[p.ID].DeletedAt)
}

func TestDestroyStubs_ShorterWindowPurges(t *testing.T) {
	// The same 70 minutes against a 1 hour window: purged.
	cfg := testConfig()
	cfg.StubRetentionWindow = time.Hour
	f := newFixture(t, cfg)
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{}))
	f.clk.Advance(70 * time.Minute)

	report, err := f.destroyer.DestroyStubs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Destroyed)
	require.NotNil(t, f.s.posts[p.ID].DeletedAt)
}

func TestDestroyStubs_ActiveFlagBlocksPurge(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	reader := f.addUser("bob")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")
	f.addAction(p, reader, moderation.KindInappropriate)

	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{}))
	f.clk.Advance(365 * 24 * time.Hour)

	report, err := f.destroyer.DestroyStubs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Destroyed)
	assert.Empty(t, report.Failures)
	assert.Nil(t, f.s.posts[p.ID].DeletedAt)
}

func TestDestroyStubs_SecondRunIsIdempotent(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	p := f.addPost(top, author, "content")

	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), p.ID, Options{}))
	f.clk.Advance(f.destroyer.cfg.StubRetentionWindow + time.Hour)

	first, err := f.destroyer.DestroyStubs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Destroyed)

	versionAfterFirst := f.s.posts[p.ID].Version
	second, err := f.destroyer.DestroyStubs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Destroyed)
	assert.Empty(t, second.Failures)
	assert.Equal(t, versionAfterFirst, f.s.posts[p.ID].Version)
}

func TestDestroyStubs_CandidateFailureDoesNotAbortSweep(t *testing.T) {
	f := newFixture(t, testConfig())
	author := f.addUser("alice")
	top := f.addTopic(author)
	broken := f.addPost(top, author, "will fail")
	healthy := f.addPost(top, author, "will purge")

	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), broken.ID, Options{}))
	require.NoError(t, f.destroyer.Destroy(context.Background(), memberActor(author), healthy.ID, Options{}))
	f.clk.Advance(f.destroyer.cfg.StubRetentionWindow + time.Hour)

	f.actions.flagsErr[broken.ID] = errors.New("flag lookup unavailable")

	report, err := f.destroyer.DestroyStubs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Destroyed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, broken.ID, report.Failures[0].PostID)

	assert.Nil(t, f.s.posts[broken.ID].DeletedAt)
	require.NotNil(t, f.s.posts[healthy.ID].DeletedAt)
}
