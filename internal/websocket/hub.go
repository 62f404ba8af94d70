// Package websocket pushes live thread updates to browsers.
// Uses github.com/coder/websocket - the modern, context-aware WebSocket library for Go.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Hub maintains the thread rooms and fans messages out to their members.
// The room maps are only written by the Run goroutine.
type Hub struct {
	// Connected clients keyed by thread ID
	rooms map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	mu sync.RWMutex

	stats *Stats

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	rateLimitConfig RateLimitConfig
}

// Stats tracks WebSocket statistics
type Stats struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig bounds how fast one client may send messages.
type RateLimitConfig struct {
	MessagesPerSecond float64
	Burst             int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MessagesPerSecond: 5, Burst: 10}
}

func (c RateLimitConfig) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(c.MessagesPerSecond), c.Burst)
}

// NewHub creates a new Hub instance. Call Run to start it.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:           make(map[string]map[*Client]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		broadcast:       make(chan *Message, 256),
		stats:           &Stats{},
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// Run starts the hub's main event loop and returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)
	logger.Log.Info("WebSocket hub starting")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToRoom(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[client.ThreadID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[client.ThreadID] = room
	}
	room[client] = struct{}{}

	h.stats.TotalConnections.Add(1)
	h.stats.ActiveConnections.Add(1)
	metrics.Get().WebSocketConnections.Inc()

	logger.Log.Debug("WebSocket client joined",
		logger.WithThreadID(client.ThreadID),
		logger.WithUserID(client.UserID),
		zap.Int64("active", h.stats.ActiveConnections.Load()),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops client from its room and closes its send channel,
// which ends its WritePump. Callers hold mu.
func (h *Hub) removeLocked(client *Client) {
	room, ok := h.rooms[client.ThreadID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}

	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.ThreadID)
	}
	close(client.send)

	h.stats.ActiveConnections.Add(-1)
	metrics.Get().WebSocketConnections.Dec()

	logger.Log.Debug("WebSocket client left",
		logger.WithThreadID(client.ThreadID),
		zap.Int64("active", h.stats.ActiveConnections.Load()),
	)
}

// broadcastToRoom sends message to every member of its thread's room.
// Members whose buffers are full are disconnected rather than blocking
// the rest of the room.
func (h *Hub) broadcastToRoom(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Error marshaling room message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[message.ThreadID] {
		select {
		case client.send <- data:
			h.stats.MessagesSent.Add(1)
		default:
			h.stats.ConnectionsDropped.Add(1)
			logger.Log.Warn("Dropping slow WebSocket client",
				logger.WithThreadID(client.ThreadID),
				logger.WithUserID(client.UserID),
			)
			h.removeLocked(client)
		}
	}
}

// BroadcastToThread queues message for the room of threadID.
func (h *Hub) BroadcastToThread(threadID string, message *Message) {
	message.ThreadID = threadID
	select {
	case h.broadcast <- message:
	case <-h.ctx.Done():
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// RoomSize returns the number of clients watching threadID.
func (h *Hub) RoomSize(threadID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[threadID])
}

// GetStats returns current WebSocket statistics
func (h *Hub) GetStats() StatsSnapshot {
	return StatsSnapshot{
		TotalConnections:   h.stats.TotalConnections.Load(),
		ActiveConnections:  h.stats.ActiveConnections.Load(),
		MessagesReceived:   h.stats.MessagesReceived.Load(),
		MessagesSent:       h.stats.MessagesSent.Load(),
		Errors:             h.stats.Errors.Load(),
		ConnectionsDropped: h.stats.ConnectionsDropped.Load(),
	}
}

// StatsSnapshot is a point-in-time snapshot of Stats
type StatsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

func (m StatsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown stops the hub and disconnects every client. It waits for Run
// to finish or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()

	select {
	case <-h.done:
		logger.Log.Info("WebSocket hub shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(&Message{
		Type:      MessageTypeSystem,
		Payload:   SystemPayload{Event: "server_shutdown"},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	})

	closed := 0
	for threadID, room := range h.rooms {
		for client := range room {
			select {
			case client.send <- data:
			default:
			}
			close(client.send)
			closed++
		}
		delete(h.rooms, threadID)
	}
	h.stats.ActiveConnections.Store(0)
	metrics.Get().WebSocketConnections.Sub(float64(closed))

	logger.Log.Info("WebSocket hub closed connections", zap.Int("count", closed))
}

// SetRateLimitConfig changes the limits for clients connecting afterwards.
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current rate limit configuration
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
