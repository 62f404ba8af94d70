package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/forum"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/util"
)

func currentActor(c *gin.Context) forum.Actor {
	user, _ := util.CurrentUser(c)
	return forum.ActorFor(user)
}

// moderating is true when a moderator edits somebody else's content.
func moderating(actor forum.Actor, authorID string) bool {
	return actor.IsModerator && actor.ID() != authorID
}

// ListThreads returns a page of active threads, or closed ones with
// ?status=closed.
// GET /api/v1/threads
func (h *Handlers) ListThreads(c *gin.Context) {
	filter := forum.FilterActive
	if c.Query("status") == string(forum.FilterClosed) {
		filter = forum.FilterClosed
	}

	page, err := h.forum.ListThreads(c.Request.Context(), filter, c.Query("page"))
	if err != nil {
		respondForumError(c, err, "page")
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateThread starts a thread with its opening post
// POST /api/v1/threads
func (h *Handlers) CreateThread(c *gin.Context) {
	var req forum.CreateThreadInput
	if !bindJSON(c, &req) {
		return
	}

	thread, err := h.forum.CreateThread(c.Request.Context(), currentActor(c), req)
	if err != nil {
		respondForumError(c, err, "thread")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"thread":   thread,
		"location": thread.Location(),
	})
}

// GetThread returns a thread with one page of its posts. ?page=last jumps
// to the newest page.
// GET /api/v1/threads/:id
func (h *Handlers) GetThread(c *gin.Context) {
	page, err := h.forum.ListPosts(c.Request.Context(), currentActor(c), c.Param("id"), c.Query("page"))
	if err != nil {
		respondForumError(c, err, "thread")
		return
	}
	c.JSON(http.StatusOK, page)
}

// EditThread returns the fields the user may change.
// GET /api/v1/threads/:id/edit
func (h *Handlers) EditThread(c *gin.Context) {
	actor := currentActor(c)
	thread, form, err := h.forum.ThreadForm(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondForumError(c, err, "thread")
		return
	}
	if !form.Allowed() {
		util.RespondForbidden(c, MsgNoPermission)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"thread":     thread,
		"form":       form,
		"moderating": moderating(actor, thread.AuthoredByID),
	})
}

// UpdateThread applies the fields allowed by the user's form.
// PUT /api/v1/threads/:id
func (h *Handlers) UpdateThread(c *gin.Context) {
	var req forum.UpdateThreadInput
	if !bindJSON(c, &req) {
		return
	}

	thread, err := h.forum.UpdateThread(c.Request.Context(), currentActor(c), c.Param("id"), req)
	if err != nil {
		respondForumError(c, err, "thread")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"thread":   thread,
		"location": thread.Location(),
	})
}

type createPostRequest struct {
	Text string `json:"text"`
}

// CreatePost replies to a thread
// POST /api/v1/threads/:id/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	var req createPostRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := h.forum.CreatePost(c.Request.Context(), currentActor(c), c.Param("id"), req.Text)
	if err != nil {
		respondForumError(c, err, "thread")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"post":     post,
		"location": forum.LastPageLocation(post.Thread),
	})
}

// StarThread sets or clears the user's star. Anonymous callers get a 403
// with a bare error body.
// POST /api/v1/threads/:id/star?status=0|1
func (h *Handlers) StarThread(c *gin.Context) {
	actor := currentActor(c)
	if !actor.Authenticated() {
		c.JSON(http.StatusForbidden, gin.H{"error": MsgNotAuthenticated})
		return
	}

	starred, err := util.ParseFlag(c.Query("status"))
	if err != nil {
		util.RespondBadRequest(c, "status must be 0 or 1")
		return
	}

	threadID := c.Param("id")
	if err := h.forum.SetStar(c.Request.Context(), actor, threadID, starred); err != nil {
		respondForumError(c, err, "thread")
		return
	}

	status := 0
	if starred {
		status = 1
	}
	logger.Log.Debug("Star updated", logger.WithUserID(actor.ID()), logger.WithThreadID(threadID))
	c.JSON(http.StatusOK, gin.H{"thread": threadID, "status": status})
}

// StarredThreads lists the user's visible starred threads.
// GET /api/v1/users/me/starred
func (h *Handlers) StarredThreads(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	threads, err := h.forum.StarredThreads(c.Request.Context(), user.ID)
	if err != nil {
		respondForumError(c, err, "thread")
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}
