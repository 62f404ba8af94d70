package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"go.uber.org/zap"
)

const reportListPath = "/api/v1/moderation/reports"

var reportActions = []choice{
	{Value: string(models.StatusGood), Label: models.StatusGood.ActionLabel()},
	{Value: string(models.StatusHidden), Label: models.StatusHidden.ActionLabel()},
}

// ListReports returns the open reports, oldest first
// GET /api/v1/moderation/reports
func (h *Handlers) ListReports(c *gin.Context) {
	reports, err := h.forum.ListOpenReports(c.Request.Context(), currentActor(c))
	if err != nil {
		respondForumError(c, err, "report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport returns an open report and the available actions
// GET /api/v1/moderation/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	report, err := h.forum.GetOpenReport(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondForumError(c, err, "report")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":  report,
		"actions": reportActions,
	})
}

type handleReportRequest struct {
	ModerationStatus models.ModerationStatus `json:"moderation_status"`
}

// HandleReport approves or hides the reported post and closes the report
// POST /api/v1/moderation/reports/:id
func (h *Handlers) HandleReport(c *gin.Context) {
	var req handleReportRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := currentActor(c)
	report, err := h.forum.HandleReport(c.Request.Context(), actor, c.Param("id"), req.ModerationStatus)
	if err != nil {
		respondForumError(c, err, "report")
		return
	}

	logger.Log.Info("Report handled",
		logger.WithReportID(report.ID),
		logger.WithPostID(report.PostID),
		logger.WithUserID(actor.ID()),
		zap.String("action", string(report.ModerationStatus)),
	)
	c.JSON(http.StatusOK, gin.H{
		"report":   report,
		"location": reportListPath,
	})
}
