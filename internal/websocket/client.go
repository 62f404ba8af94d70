package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message (including pongs) from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Rooms only receive; client messages are pings
	maxMessageSize = 4 * 1024

	sendBufferSize  = 64
	replyBufferSize = 8
)

// Client is one browser watching one thread.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	ThreadID string
	// UserID is empty for anonymous readers
	UserID string

	// Room broadcasts. Owned and closed by the hub.
	send chan []byte
	// Direct replies (pong, error). Owned by the client and never closed,
	// so ReadPump cannot race the hub closing send.
	replies chan []byte

	ConnectedAt time.Time
	RemoteAddr  string

	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, threadID, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		hub:         hub,
		conn:        conn,
		ThreadID:    threadID,
		UserID:      userID,
		send:        make(chan []byte, sendBufferSize),
		replies:     make(chan []byte, replyBufferSize),
		ConnectedAt: time.Now(),
		limiter:     hub.GetRateLimitConfig().limiter(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump reads client messages until the connection fails. It blocks.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Debug("WebSocket client disconnected", logger.WithThreadID(c.ThreadID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("WebSocket read error", logger.WithThreadID(c.ThreadID), zap.Error(err))
				c.hub.stats.Errors.Add(1)
			}
			return
		}

		if !c.limiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			c.hub.stats.Errors.Add(1)
			continue
		}
		c.hub.stats.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}
		c.handleMessage(&message)
	}
}

// WritePump writes room broadcasts, replies and keepalive pings. It
// returns when the hub closes send or the client closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}
			if err := c.write(message); err != nil {
				return
			}

		case reply := <-c.replies:
			if err := c.write(reply); err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("WebSocket ping failed", logger.WithThreadID(c.ThreadID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) write(data []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, writeWait)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		if c.ctx.Err() == nil {
			logger.Log.Warn("WebSocket write error", logger.WithThreadID(c.ThreadID), zap.Error(err))
			c.hub.stats.Errors.Add(1)
		}
		return err
	}
	return nil
}

func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypePing, "heartbeat":
		var ping PingPayload
		_ = message.ParsePayload(&ping)
		pong := NewMessage(MessageTypePong, PongPayload{
			ClientTime: ping.ClientTime,
			ServerTime: time.Now().UnixMilli(),
		})
		pong.ReplyTo = message.ID
		_ = c.Send(pong)
	default:
		c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", message.Type))
	}
}

// Send queues a direct reply to this client.
func (c *Client) Send(message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.replies <- data:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("client connection closed")
	default:
		return fmt.Errorf("reply buffer full")
	}
}

// SendError sends an error message to the client
func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// Close cancels the client and closes its connection. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}
