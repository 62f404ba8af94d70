package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/util"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// Search finds visible threads by title or post text
// GET /api/v1/search?q=
func (h *Handlers) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		util.RespondBadRequest(c, "search query is required")
		return
	}

	limit := util.ParseInt(c.Query("limit"), defaultSearchLimit)
	if limit < 1 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}

	threads, err := h.forum.Search(c.Request.Context(), query, limit)
	if err != nil {
		util.RespondInternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"threads": threads,
	})
}
