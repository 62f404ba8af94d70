package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/forum"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"github.com/zfogg/tinyforum/backend/internal/util"
)

type choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func reasonChoices() []choice {
	out := make([]choice, 0, len(models.ReportReasons))
	for _, r := range models.ReportReasons {
		out = append(out, choice{Value: string(r), Label: r.Label()})
	}
	return out
}

// EditPost returns the fields the user may change on a post.
// GET /api/v1/posts/:id/edit
func (h *Handlers) EditPost(c *gin.Context) {
	actor := currentActor(c)
	post, form, err := h.forum.PostForm(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondForumError(c, err, "post")
		return
	}
	if !form.Allowed() {
		util.RespondForbidden(c, MsgNoPermission)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":       post,
		"form":       form,
		"moderating": moderating(actor, post.AuthoredByID),
	})
}

// UpdatePost edits a post's text, or its status for moderators.
// PUT /api/v1/posts/:id
func (h *Handlers) UpdatePost(c *gin.Context) {
	var req forum.UpdatePostInput
	if !bindJSON(c, &req) {
		return
	}

	post, err := h.forum.UpdatePost(c.Request.Context(), currentActor(c), c.Param("id"), req)
	if err != nil {
		respondForumError(c, err, "post")
		return
	}

	location := models.ThreadListPath
	if post.Thread != nil {
		location = post.Thread.Location()
	}
	c.JSON(http.StatusOK, gin.H{
		"post":     post,
		"location": location,
	})
}

// ReportForm returns the report reasons, or 409 when the user already
// reported the post.
// GET /api/v1/posts/:id/report
func (h *Handlers) ReportForm(c *gin.Context) {
	actor := currentActor(c)
	post, err := h.forum.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondForumError(c, err, "post")
		return
	}

	reported, err := h.forum.HasReported(c.Request.Context(), actor.ID(), post.ID)
	if err != nil {
		util.RespondInternalError(c, err)
		return
	}
	if reported {
		util.RespondConflict(c, MsgAlreadyReported)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":    post,
		"reasons": reasonChoices(),
		"fields":  []string{forum.FieldReason, forum.FieldNotes},
	})
}

// ReportPost files a report and flags the post for moderators.
// POST /api/v1/posts/:id/report
func (h *Handlers) ReportPost(c *gin.Context) {
	var req forum.ReportInput
	if !bindJSON(c, &req) {
		return
	}

	actor := currentActor(c)
	report, err := h.forum.ReportPost(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondForumError(c, err, "post")
		return
	}

	logger.Log.Info("Post reported",
		logger.WithPostID(report.PostID),
		logger.WithReportID(report.ID),
		logger.WithUserID(actor.ID()),
	)

	location := models.ThreadListPath
	if report.Post != nil && report.Post.Thread != nil {
		location = report.Post.Thread.Location()
	}
	util.RespondMessage(c, http.StatusCreated, MsgReportThanks, gin.H{
		"report":   report,
		"location": location,
	})
}
