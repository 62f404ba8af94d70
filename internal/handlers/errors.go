package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/auth"
	apierrors "github.com/zfogg/tinyforum/backend/internal/errors"
	"github.com/zfogg/tinyforum/backend/internal/forum"
	"github.com/zfogg/tinyforum/backend/internal/util"
)

// User-facing messages.
const (
	MsgNoPermission      = "Sorry, you do not have permissions."
	MsgAlreadyReported   = "You already reported this post."
	MsgReportThanks      = "Thank you for the report. A community moderator will deal with it as soon as possible!"
	MsgReportUnavailable = "This report was already handled."
	MsgNotAuthenticated  = "not authenticated"
)

// respondForumError translates forum service errors into API responses.
// resource names the object in 404 messages.
func respondForumError(c *gin.Context, err error, resource string) {
	var verr *forum.ValidationError
	switch {
	case errors.As(err, &verr):
		util.RespondValidationError(c, verr.Field, verr.Message)
	case errors.Is(err, forum.ErrNotFound):
		util.RespondNotFound(c, resource)
	case errors.Is(err, forum.ErrUnauthenticated):
		util.RespondUnauthorized(c)
	case errors.Is(err, forum.ErrForbidden):
		util.RespondForbidden(c, MsgNoPermission)
	case errors.Is(err, forum.ErrNotModerator):
		util.RespondForbidden(c, auth.MsgNoModerationPowers)
	case errors.Is(err, forum.ErrThreadClosed):
		util.RespondWithAPIError(c, apierrors.ThreadClosed())
	case errors.Is(err, forum.ErrAlreadyReported):
		util.RespondConflict(c, MsgAlreadyReported)
	case errors.Is(err, forum.ErrReportUnavailable):
		util.RespondConflict(c, MsgReportUnavailable)
	default:
		util.RespondInternalError(c, err)
	}
}

// bindJSON decodes the body or writes a 400.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return false
	}
	return true
}
