package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/forum"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"github.com/zfogg/tinyforum/backend/internal/util"
	"go.uber.org/zap"
)

// ThreadLookup finds the thread a room belongs to.
type ThreadLookup interface {
	GetVisibleThread(ctx context.Context, id string) (*models.Thread, error)
}

// Handler upgrades HTTP requests into thread room connections.
type Handler struct {
	hub            *Hub
	threads        ThreadLookup
	originPatterns []string
}

// NewHandler creates a new WebSocket handler. originPatterns are host
// patterns accepted for cross-origin upgrades; "*" accepts any origin.
func NewHandler(hub *Hub, threads ThreadLookup, originPatterns []string) *Handler {
	return &Handler{hub: hub, threads: threads, originPatterns: originPatterns}
}

// HandleThreadRoom serves GET /threads/:id/ws. Anonymous readers may join;
// when OptionalAuth found a user the connection is tagged with it.
func (h *Handler) HandleThreadRoom(c *gin.Context) {
	thread, err := h.threads.GetVisibleThread(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, forum.ErrNotFound) {
			util.RespondNotFound(c, "thread")
			return
		}
		util.RespondInternalError(c, err)
		return
	}

	userID := ""
	if user, ok := util.CurrentUser(c); ok {
		userID = user.ID
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: h.acceptsAnyOrigin(),
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", logger.WithThreadID(thread.ID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, thread.ID, userID)
	client.RemoteAddr = c.ClientIP()
	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event: "connected",
		Data: map[string]interface{}{
			"thread":      NewThreadPayload(thread),
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))

	go client.WritePump()
	client.ReadPump()
}

func (h *Handler) acceptsAnyOrigin() bool {
	for _, p := range h.originPatterns {
		if p == "*" {
			return true
		}
	}
	return false
}

// HandleStats reports hub statistics for operators.
func (h *Handler) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket": h.hub.GetStats(),
		"timestamp": time.Now().UTC(),
	})
}
