package forum

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/tinyforum/backend/internal/database/dbtest"
	"github.com/zfogg/tinyforum/backend/internal/events"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"gorm.io/gorm"
)

// stepClock advances one second per call so rows get distinct timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type memStarCache struct {
	mu          sync.Mutex
	data        map[string][]string
	invalidated []string
}

func (c *memStarCache) Get(_ context.Context, userID string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, ok := c.data[userID]
	return ids, ok
}

func (c *memStarCache) Set(_ context.Context, userID string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[userID] = ids
}

func (c *memStarCache) Invalidate(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, userID)
	c.invalidated = append(c.invalidated, userID)
}

// ForumSuite runs the service against in-memory sqlite.
type ForumSuite struct {
	suite.Suite
	ctx    context.Context
	db     *gorm.DB
	svc    *Service
	events *recorder
	stars  *memStarCache

	alice *models.User
	bob   *models.User
	mod   *models.User
}

func TestForumSuite(t *testing.T) {
	suite.Run(t, new(ForumSuite))
}

func (s *ForumSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.Open(s.T())
	s.events = &recorder{}
	s.stars = &memStarCache{data: map[string][]string{}}
	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.svc = NewService(s.db, WithEvents(s.events), WithStarCache(s.stars), WithClock(clock.Now))

	s.alice = s.createUser("alice", false)
	s.bob = s.createUser("bob", false)
	s.mod = s.createUser("mod", true)
}

func (s *ForumSuite) createUser(name string, moderator bool) *models.User {
	u := &models.User{
		Email:       name + "@example.com",
		Username:    name,
		DisplayName: name,
		IsModerator: moderator,
	}
	s.Require().NoError(s.db.Create(u).Error)
	return u
}

func (s *ForumSuite) as(u *models.User) Actor { return ActorFor(u) }

func (s *ForumSuite) createThread(author *models.User, title string) *models.Thread {
	th, err := s.svc.CreateThread(s.ctx, s.as(author), CreateThreadInput{Title: title, Text: "<p>first post of " + title + "</p>"})
	s.Require().NoError(err)
	return th
}

func (s *ForumSuite) reload(th *models.Thread) *models.Thread {
	var fresh models.Thread
	s.Require().NoError(s.db.First(&fresh, "id = ?", th.ID).Error)
	return &fresh
}

func (s *ForumSuite) postCount(u *models.User) int {
	var fresh models.User
	s.Require().NoError(s.db.First(&fresh, "id = ?", u.ID).Error)
	return fresh.PostCount
}

// --- threads ---

func (s *ForumSuite) TestCreateThread() {
	th, err := s.svc.CreateThread(s.ctx, s.as(s.alice), CreateThreadInput{
		Title:    "  Hello  ",
		Text:     `<p>Hi <script>alert(1)</script>there</p>`,
		IsPinned: true,
	})
	s.Require().NoError(err)

	s.Equal("Hello", th.Title)
	s.False(th.IsPinned, "pinning needs moderation powers")
	s.Equal(1, th.PostCount)
	s.Require().NotNil(th.LatestPostID)
	s.NotContains(th.LatestPost.Text, "script")

	starred, err := s.svc.IsStarred(s.ctx, s.alice.ID, th.ID)
	s.Require().NoError(err)
	s.True(starred)
	s.Equal(1, s.postCount(s.alice))
	s.Equal([]events.Kind{events.ThreadCreated, events.PostCreated}, s.events.kinds())
}

func (s *ForumSuite) TestCreateThreadAsModeratorPins() {
	th, err := s.svc.CreateThread(s.ctx, s.as(s.mod), CreateThreadInput{Title: "Rules", Text: "be nice", IsPinned: true})
	s.Require().NoError(err)
	s.True(th.IsPinned)
}

func (s *ForumSuite) TestCreateThreadValidation() {
	_, err := s.svc.CreateThread(s.ctx, Actor{}, CreateThreadInput{Title: "x", Text: "y"})
	s.ErrorIs(err, ErrUnauthenticated)

	var verr *ValidationError
	_, err = s.svc.CreateThread(s.ctx, s.as(s.alice), CreateThreadInput{Title: "   ", Text: "y"})
	s.Require().ErrorAs(err, &verr)
	s.Equal(FieldTitle, verr.Field)

	long := make([]rune, models.MaxTitleLength+1)
	for i := range long {
		long[i] = 'ä'
	}
	_, err = s.svc.CreateThread(s.ctx, s.as(s.alice), CreateThreadInput{Title: string(long), Text: "y"})
	s.Require().ErrorAs(err, &verr)
	s.Equal(FieldTitle, verr.Field)

	_, err = s.svc.CreateThread(s.ctx, s.as(s.alice), CreateThreadInput{Title: "ok", Text: "<p> </p><script>x</script>"})
	s.Require().ErrorAs(err, &verr)
	s.Equal(FieldText, verr.Field)
}

func (s *ForumSuite) TestListThreadsOrderingAndScopes() {
	old := s.createThread(s.alice, "old")
	busy := s.createThread(s.alice, "busy")
	pinned, err := s.svc.CreateThread(s.ctx, s.as(s.mod), CreateThreadInput{Title: "pinned", Text: "x", IsPinned: true})
	s.Require().NoError(err)
	closed := s.createThread(s.bob, "closed")
	hidden := s.createThread(s.bob, "hidden")

	// Replying to "old" makes it the most recently active unpinned thread.
	_, err = s.svc.CreatePost(s.ctx, s.as(s.bob), old.ID, "bump")
	s.Require().NoError(err)

	_, err = s.svc.UpdateThread(s.ctx, s.as(s.bob), closed.ID, UpdateThreadInput{CloseThread: true})
	s.Require().NoError(err)
	status := models.StatusHidden
	_, err = s.svc.UpdateThread(s.ctx, s.as(s.mod), hidden.ID, UpdateThreadInput{ModerationStatus: &status})
	s.Require().NoError(err)

	page, err := s.svc.ListThreads(s.ctx, FilterActive, "")
	s.Require().NoError(err)
	var titles []string
	for _, th := range page.Threads {
		titles = append(titles, th.Title)
		s.NotNil(th.LatestPost)
		s.NotNil(th.AuthoredBy)
	}
	s.Equal([]string{pinned.Title, old.Title, busy.Title}, titles)
	s.Equal(1, page.Page.NumPages)

	page, err = s.svc.ListThreads(s.ctx, FilterClosed, "1")
	s.Require().NoError(err)
	s.Require().Len(page.Threads, 1)
	s.Equal(closed.ID, page.Threads[0].ID)
}

func (s *ForumSuite) TestListThreadsWithoutVisiblePostsSortLast() {
	emptied := s.createThread(s.alice, "emptied")
	older := s.createThread(s.bob, "older")
	s.createThread(s.bob, "newer")

	status := models.StatusHidden
	_, err := s.svc.UpdatePost(s.ctx, s.as(s.mod), *emptied.LatestPostID, UpdatePostInput{ModerationStatus: &status})
	s.Require().NoError(err)
	fresh := s.reload(emptied)
	s.Nil(fresh.LatestPostID)
	s.Zero(fresh.PostCount)

	page, err := s.svc.ListThreads(s.ctx, FilterActive, "")
	s.Require().NoError(err)
	var titles []string
	for _, th := range page.Threads {
		titles = append(titles, th.Title)
	}
	s.Equal([]string{"newer", older.Title, emptied.Title}, titles)
}

func (s *ForumSuite) TestListThreadsPaginates() {
	for i := 0; i < 51; i++ {
		s.createThread(s.alice, fmt.Sprintf("thread %02d", i))
	}
	page, err := s.svc.ListThreads(s.ctx, FilterActive, "last")
	s.Require().NoError(err)
	s.Equal(2, page.Page.Number)
	s.Len(page.Threads, 1)
	s.Equal("thread 00", page.Threads[0].Title)
}

func (s *ForumSuite) TestGetVisibleThread() {
	th := s.createThread(s.alice, "t")
	_, err := s.svc.GetVisibleThread(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)

	status := models.StatusHidden
	updated, err := s.svc.UpdateThread(s.ctx, s.as(s.mod), th.ID, UpdateThreadInput{ModerationStatus: &status})
	s.Require().NoError(err)
	s.Equal(models.ThreadListPath, updated.Location())

	_, err = s.svc.GetVisibleThread(s.ctx, th.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ForumSuite) TestUpdateThreadByAuthor() {
	th := s.createThread(s.alice, "t")
	title := "renamed"
	pin := true
	status := models.StatusHidden

	updated, err := s.svc.UpdateThread(s.ctx, s.as(s.alice), th.ID, UpdateThreadInput{
		Title:            &title,
		IsPinned:         &pin,
		ModerationStatus: &status,
		CloseThread:      true,
	})
	s.Require().NoError(err)
	s.Equal("renamed", updated.Title)
	s.False(updated.IsPinned)
	s.Equal(models.StatusGood, updated.ModerationStatus)
	s.True(updated.IsClosed())
	s.Contains(s.events.kinds(), events.ThreadUpdated)

	_, form, err := s.svc.ThreadForm(s.ctx, s.as(s.alice), th.ID)
	s.Require().NoError(err)
	s.False(form.Allows(FieldCloseThread), "closing is offered only once")
}

func (s *ForumSuite) TestUpdateThreadPermissions() {
	th := s.createThread(s.alice, "t")
	title := "nope"

	_, err := s.svc.UpdateThread(s.ctx, s.as(s.bob), th.ID, UpdateThreadInput{Title: &title})
	s.ErrorIs(err, ErrForbidden)
	_, err = s.svc.UpdateThread(s.ctx, Actor{}, th.ID, UpdateThreadInput{Title: &title})
	s.ErrorIs(err, ErrUnauthenticated)
	_, err = s.svc.UpdateThread(s.ctx, s.as(s.alice), "missing", UpdateThreadInput{Title: &title})
	s.ErrorIs(err, ErrNotFound)

	pin := true
	updated, err := s.svc.UpdateThread(s.ctx, s.as(s.mod), th.ID, UpdateThreadInput{IsPinned: &pin, CloseThread: true})
	s.Require().NoError(err)
	s.True(updated.IsPinned)
	s.True(updated.IsClosed())

	bad := models.ModerationStatus("gone")
	_, err = s.svc.UpdateThread(s.ctx, s.as(s.mod), th.ID, UpdateThreadInput{ModerationStatus: &bad})
	var verr *ValidationError
	s.ErrorAs(err, &verr)
}

// --- posts ---

func (s *ForumSuite) TestCreatePostRefreshesStats() {
	th := s.createThread(s.alice, "t")
	post, err := s.svc.CreatePost(s.ctx, s.as(s.bob), th.ID, "<p>reply</p>")
	s.Require().NoError(err)

	fresh := s.reload(th)
	s.Equal(2, fresh.PostCount)
	s.Require().NotNil(fresh.LatestPostID)
	s.Equal(post.ID, *fresh.LatestPostID)
	s.Equal(1, s.postCount(s.bob))
	s.Equal("/api/v1/threads/"+th.ID+"?page=last", LastPageLocation(fresh))
}

func (s *ForumSuite) TestCreatePostRejected() {
	th := s.createThread(s.alice, "t")

	_, err := s.svc.CreatePost(s.ctx, Actor{}, th.ID, "x")
	s.ErrorIs(err, ErrUnauthenticated)

	_, err = s.svc.CreatePost(s.ctx, s.as(s.bob), th.ID, "  ")
	var verr *ValidationError
	s.ErrorAs(err, &verr)

	_, err = s.svc.UpdateThread(s.ctx, s.as(s.alice), th.ID, UpdateThreadInput{CloseThread: true})
	s.Require().NoError(err)
	_, err = s.svc.CreatePost(s.ctx, s.as(s.bob), th.ID, "late")
	s.ErrorIs(err, ErrThreadClosed)

	hidden := s.createThread(s.alice, "h")
	status := models.StatusHidden
	_, err = s.svc.UpdateThread(s.ctx, s.as(s.mod), hidden.ID, UpdateThreadInput{ModerationStatus: &status})
	s.Require().NoError(err)
	_, err = s.svc.CreatePost(s.ctx, s.as(s.bob), hidden.ID, "x")
	s.ErrorIs(err, ErrNotFound)
}

func (s *ForumSuite) TestListPostsPagination() {
	th := s.createThread(s.alice, "t")
	for i := 1; i < 26; i++ {
		_, err := s.svc.CreatePost(s.ctx, s.as(s.bob), th.ID, fmt.Sprintf("post %d", i))
		s.Require().NoError(err)
	}

	first, err := s.svc.ListPosts(s.ctx, s.as(s.bob), th.ID, "")
	s.Require().NoError(err)
	s.Len(first.Posts, 20)
	s.False(first.CanPost, "reply form only on the last page")
	s.False(first.Starred)
	s.Contains(first.Posts[0].Text, "first post")

	last, err := s.svc.ListPosts(s.ctx, s.as(s.bob), th.ID, "last")
	s.Require().NoError(err)
	s.Equal(2, last.Page.Number)
	s.Len(last.Posts, 6)
	s.True(last.CanPost)
	s.Equal("post 25", last.Posts[5].Text)

	anon, err := s.svc.ListPosts(s.ctx, Actor{}, th.ID, "last")
	s.Require().NoError(err)
	s.False(anon.CanPost)

	owner, err := s.svc.ListPosts(s.ctx, s.as(s.alice), th.ID, "1")
	s.Require().NoError(err)
	s.True(owner.Starred)
}

func (s *ForumSuite) TestListPostsOrphans() {
	th := s.createThread(s.alice, "t")
	for i := 1; i < 24; i++ {
		_, err := s.svc.CreatePost(s.ctx, s.as(s.bob), th.ID, "x")
		s.Require().NoError(err)
	}
	// 24 posts fit on one page with five orphans.
	page, err := s.svc.ListPosts(s.ctx, s.as(s.bob), th.ID, "2")
	s.Require().NoError(err)
	s.Equal(1, page.Page.NumPages)
	s.Len(page.Posts, 24)
	s.True(page.CanPost)
}

func (s *ForumSuite) TestModeratingPostUpdatesStats() {
	th := s.createThread(s.alice, "t")
	reply, err := s.svc.CreatePost(s.ctx, s.as(s.bob), th.ID, "spam")
	s.Require().NoError(err)

	status := models.StatusHidden
	_, err = s.svc.UpdatePost(s.ctx, s.as(s.mod), reply.ID, UpdatePostInput{ModerationStatus: &status})
	s.Require().NoError(err)

	fresh := s.reload(th)
	s.Equal(1, fresh.PostCount)
	s.NotEqual(reply.ID, *fresh.LatestPostID)
	s.Equal(0, s.postCount(s.bob))

	page, err := s.svc.ListPosts(s.ctx, s.as(s.alice), th.ID, "")
	s.Require().NoError(err)
	s.Len(page.Posts, 1)
}

func (s *ForumSuite) TestUpdatePostPermissions() {
	th := s.createThread(s.alice, "t")
	reply, err := s.svc.CreatePost(s.ctx, s.as(s.bob), th.ID, "mine")
	s.Require().NoError(err)

	text := "<p>edited</p>"
	status := models.StatusHidden
	updated, err := s.svc.UpdatePost(s.ctx, s.as(s.bob), reply.ID, UpdatePostInput{Text: &text, ModerationStatus: &status})
	s.Require().NoError(err)
	s.Equal("<p>edited</p>", updated.Text)
	s.Equal(models.StatusGood, updated.ModerationStatus, "authors cannot moderate")

	_, err = s.svc.UpdatePost(s.ctx, s.as(s.alice), reply.ID, UpdatePostInput{Text: &text})
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.UpdateThread(s.ctx, s.as(s.alice), th.ID, UpdateThreadInput{CloseThread: true})
	s.Require().NoError(err)
	_, err = s.svc.UpdatePost(s.ctx, s.as(s.bob), reply.ID, UpdatePostInput{Text: &text})
	s.ErrorIs(err, ErrThreadClosed)
	_, err = s.svc.UpdatePost(s.ctx, s.as(s.mod), reply.ID, UpdatePostInput{Text: &text})
	s.ErrorIs(err, ErrThreadClosed)
}

// --- stars ---

func (s *ForumSuite) TestStars() {
	th := s.createThread(s.alice, "t")

	s.Require().NoError(s.svc.SetStar(s.ctx, s.as(s.bob), th.ID, true))
	s.Require().NoError(s.svc.SetStar(s.ctx, s.as(s.bob), th.ID, true))

	ids, err := s.svc.StarredThreadIDs(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal([]string{th.ID}, ids)
	cached, ok := s.stars.Get(s.ctx, s.bob.ID)
	s.True(ok)
	s.Equal(ids, cached)

	threads, err := s.svc.StarredThreads(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Len(threads, 1)

	s.Require().NoError(s.svc.SetStar(s.ctx, s.as(s.bob), th.ID, false))
	s.Require().NoError(s.svc.SetStar(s.ctx, s.as(s.bob), th.ID, false))
	_, ok = s.stars.Get(s.ctx, s.bob.ID)
	s.False(ok, "changing stars drops the cached list")

	ids, err = s.svc.StarredThreadIDs(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Empty(ids)

	s.ErrorIs(s.svc.SetStar(s.ctx, Actor{}, th.ID, true), ErrUnauthenticated)
	s.ErrorIs(s.svc.SetStar(s.ctx, s.as(s.bob), "missing", true), ErrNotFound)
}

// --- reports ---

func (s *ForumSuite) firstPost(th *models.Thread) *models.Post {
	s.Require().NotNil(th.LatestPostID)
	post, err := s.svc.GetPost(s.ctx, *th.LatestPostID)
	s.Require().NoError(err)
	return post
}

func (s *ForumSuite) TestReportPostFlags() {
	th := s.createThread(s.alice, "t")
	post := s.firstPost(th)

	report, err := s.svc.ReportPost(s.ctx, s.as(s.bob), post.ID, ReportInput{Reason: models.ReasonSpam, Notes: "  buy now  "})
	s.Require().NoError(err)
	s.Equal(models.StatusFlagged, report.ModerationStatus)
	s.Equal("buy now", report.Notes)
	s.False(report.IsHandled())

	post = s.firstPost(th)
	s.Equal(models.StatusFlagged, post.ModerationStatus)
	s.Equal(1, s.reload(th).PostCount, "flagged posts stay visible")

	_, err = s.svc.ReportPost(s.ctx, s.as(s.bob), post.ID, ReportInput{Reason: models.ReasonAnnoying})
	s.ErrorIs(err, ErrAlreadyReported)
}

func (s *ForumSuite) TestReportPostValidation() {
	th := s.createThread(s.alice, "t")
	post := s.firstPost(th)

	_, err := s.svc.ReportPost(s.ctx, s.as(s.bob), post.ID, ReportInput{Reason: "rude"})
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal(FieldReason, verr.Field)

	_, err = s.svc.ReportPost(s.ctx, Actor{}, post.ID, ReportInput{Reason: models.ReasonSpam})
	s.ErrorIs(err, ErrUnauthenticated)
	_, err = s.svc.ReportPost(s.ctx, s.as(s.bob), "missing", ReportInput{Reason: models.ReasonSpam})
	s.ErrorIs(err, ErrNotFound)
}

func (s *ForumSuite) TestReportHiddenPostKeepsStatus() {
	th := s.createThread(s.alice, "t")
	post := s.firstPost(th)
	status := models.StatusHidden
	_, err := s.svc.UpdatePost(s.ctx, s.as(s.mod), post.ID, UpdatePostInput{ModerationStatus: &status})
	s.Require().NoError(err)

	_, err = s.svc.ReportPost(s.ctx, s.as(s.bob), post.ID, ReportInput{Reason: models.ReasonMisplaced})
	s.Require().NoError(err)
	s.Equal(models.StatusHidden, s.firstPostByID(post.ID).ModerationStatus)
}

func (s *ForumSuite) firstPostByID(id string) *models.Post {
	post, err := s.svc.GetPost(s.ctx, id)
	s.Require().NoError(err)
	return post
}

func (s *ForumSuite) TestListOpenReports() {
	th := s.createThread(s.alice, "t")
	post := s.firstPost(th)

	byBob, err := s.svc.ReportPost(s.ctx, s.as(s.bob), post.ID, ReportInput{Reason: models.ReasonSpam})
	s.Require().NoError(err)
	byMod, err := s.svc.ReportPost(s.ctx, s.as(s.mod), post.ID, ReportInput{Reason: models.ReasonAnnoying})
	s.Require().NoError(err)

	_, err = s.svc.ListOpenReports(s.ctx, s.as(s.bob))
	s.ErrorIs(err, ErrNotModerator)

	reports, err := s.svc.ListOpenReports(s.ctx, s.as(s.mod))
	s.Require().NoError(err)
	s.Require().Len(reports, 1)
	s.Equal(byBob.ID, reports[0].ID)
	s.Require().NotNil(reports[0].Post)
	s.NotNil(reports[0].Post.AuthoredBy)

	_, err = s.svc.GetOpenReport(s.ctx, s.as(s.mod), byMod.ID)
	s.ErrorIs(err, ErrNotFound, "moderators do not triage their own reports")

	other := s.createUser("other-mod", true)
	reports, err = s.svc.ListOpenReports(s.ctx, s.as(other))
	s.Require().NoError(err)
	s.Len(reports, 2)
	s.Equal(byBob.ID, reports[0].ID, "oldest first")
}

func (s *ForumSuite) TestHandleReportHides() {
	th := s.createThread(s.alice, "t")
	reply, err := s.svc.CreatePost(s.ctx, s.as(s.alice), th.ID, "offending")
	s.Require().NoError(err)
	report, err := s.svc.ReportPost(s.ctx, s.as(s.bob), reply.ID, ReportInput{Reason: models.ReasonSpam})
	s.Require().NoError(err)

	handled, err := s.svc.HandleReport(s.ctx, s.as(s.mod), report.ID, models.StatusHidden)
	s.Require().NoError(err)
	s.True(handled.IsHandled())
	s.Require().NotNil(handled.HandledByID)
	s.Equal(s.mod.ID, *handled.HandledByID)
	s.Equal(models.StatusHidden, handled.ModerationStatus)
	s.Equal(models.StatusHidden, handled.Post.ModerationStatus)

	s.Equal(1, s.reload(th).PostCount)
	s.Equal(1, s.postCount(s.alice))
	s.Contains(s.events.kinds(), events.PostReportHandled)

	_, err = s.svc.HandleReport(s.ctx, s.as(s.mod), report.ID, models.StatusGood)
	s.ErrorIs(err, ErrReportUnavailable)

	reports, err := s.svc.ListOpenReports(s.ctx, s.as(s.mod))
	s.Require().NoError(err)
	s.Empty(reports)
}

func (s *ForumSuite) TestHandleReportApprovesFlaggedPost() {
	th := s.createThread(s.alice, "t")
	post := s.firstPost(th)
	report, err := s.svc.ReportPost(s.ctx, s.as(s.bob), post.ID, ReportInput{Reason: models.ReasonAnnoying})
	s.Require().NoError(err)

	_, err = s.svc.HandleReport(s.ctx, s.as(s.mod), report.ID, models.StatusGood)
	s.Require().NoError(err)
	s.Equal(models.StatusGood, s.firstPostByID(post.ID).ModerationStatus)
}

func (s *ForumSuite) TestHandleReportRejected() {
	th := s.createThread(s.alice, "t")
	post := s.firstPost(th)
	report, err := s.svc.ReportPost(s.ctx, s.as(s.mod), post.ID, ReportInput{Reason: models.ReasonSpam})
	s.Require().NoError(err)

	_, err = s.svc.HandleReport(s.ctx, s.as(s.bob), report.ID, models.StatusHidden)
	s.ErrorIs(err, ErrNotModerator)

	_, err = s.svc.HandleReport(s.ctx, s.as(s.mod), report.ID, models.StatusFlagged)
	var verr *ValidationError
	s.ErrorAs(err, &verr)

	_, err = s.svc.HandleReport(s.ctx, s.as(s.mod), report.ID, models.StatusHidden)
	s.ErrorIs(err, ErrReportUnavailable, "own report")

	_, err = s.svc.HandleReport(s.ctx, s.as(s.mod), "missing", models.StatusHidden)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ForumSuite) TestHandleReportConcurrentModerators() {
	th := s.createThread(s.alice, "t")
	post := s.firstPost(th)
	report, err := s.svc.ReportPost(s.ctx, s.as(s.bob), post.ID, ReportInput{Reason: models.ReasonSpam})
	s.Require().NoError(err)

	const n = 6
	mods := make([]*models.User, n)
	for i := range mods {
		mods[i] = s.createUser(fmt.Sprintf("mod%d", i), true)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action := models.StatusGood
			if i%2 == 0 {
				action = models.StatusHidden
			}
			_, errs[i] = s.svc.HandleReport(s.ctx, s.as(mods[i]), report.ID, action)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		s.ErrorIs(err, ErrReportUnavailable)
	}
	s.Equal(1, winners)

	var stored models.PostReport
	s.Require().NoError(s.db.First(&stored, "id = ?", report.ID).Error)
	s.Equal(s.firstPostByID(post.ID).ModerationStatus, stored.ModerationStatus)
}

// --- search ---

type stubSearcher struct {
	ids []string
	err error
}

func (s stubSearcher) SearchThreads(context.Context, string, int) ([]string, error) {
	return s.ids, s.err
}

func (s *ForumSuite) TestSearchSQL() {
	golang := s.createThread(s.alice, "Learning Go")
	other := s.createThread(s.bob, "Cooking")
	_, err := s.svc.CreatePost(s.ctx, s.as(s.alice), other.ID, "pasta with golang sauce")
	s.Require().NoError(err)
	hidden := s.createThread(s.bob, "Go secrets")
	status := models.StatusHidden
	_, err = s.svc.UpdateThread(s.ctx, s.as(s.mod), hidden.ID, UpdateThreadInput{ModerationStatus: &status})
	s.Require().NoError(err)

	found, err := s.svc.Search(s.ctx, "go", 0)
	s.Require().NoError(err)
	ids := map[string]bool{}
	for _, th := range found {
		ids[th.ID] = true
	}
	s.True(ids[golang.ID])
	s.True(ids[other.ID])
	s.False(ids[hidden.ID])

	found, err = s.svc.Search(s.ctx, "100%", 0)
	s.Require().NoError(err)
	s.Empty(found)

	_, err = s.svc.Search(s.ctx, " ", 0)
	var verr *ValidationError
	s.ErrorAs(err, &verr)
}

func (s *ForumSuite) TestSearchUsesSearcher() {
	a := s.createThread(s.alice, "a")
	b := s.createThread(s.alice, "b")

	svc := NewService(s.db, WithSearcher(stubSearcher{ids: []string{b.ID, "gone", a.ID}}))
	found, err := svc.Search(s.ctx, "anything", 5)
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.Equal(b.ID, found[0].ID)
	s.Equal(a.ID, found[1].ID)

	svc = NewService(s.db, WithSearcher(stubSearcher{err: fmt.Errorf("es down")}))
	found, err = svc.Search(s.ctx, "b", 5)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(b.ID, found[0].ID)
}

func TestServiceWithoutOptions(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	u := &models.User{Email: "x@example.com", Username: "x", DisplayName: "X"}
	require.NoError(t, db.Create(u).Error)

	th, err := svc.CreateThread(context.Background(), ActorFor(u), CreateThreadInput{Title: "t", Text: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.SetStar(context.Background(), ActorFor(u), th.ID, false))
	require.Same(t, db, svc.DB())
}
