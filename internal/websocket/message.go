package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zfogg/tinyforum/backend/internal/models"
)

// FlexibleTime accepts Unix milliseconds or RFC3339 strings, since browser
// clients tend to send Date.now().
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON always writes RFC3339.
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"

	// Thread room updates
	MessageTypeNewPost       = "new_post"
	MessageTypePostModerated = "post_moderated"
	MessageTypeThreadUpdated = "thread_updated"
)

// Message is the envelope for everything sent over a thread room.
type Message struct {
	Type     string      `json:"type"`
	ThreadID string      `json:"thread_id,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`

	// ID and ReplyTo pair client pings with server pongs
	ID      string `json:"id,omitempty"`
	ReplyTo string `json:"reply_to,omitempty"`

	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// ParsePayload decodes the payload of a message read off the wire into v.
func (m *Message) ParsePayload(v interface{}) error {
	if m.Payload == nil {
		return fmt.Errorf("message has no payload")
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SystemPayload announces connection lifecycle events.
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ErrorPayload describes why a client message was rejected.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
}

// PostPayload is a post as seen by room members. Text is blank for hidden
// posts so moderated content does not leak through the socket.
type PostPayload struct {
	PostID           string                  `json:"post_id"`
	ThreadID         string                  `json:"thread_id"`
	AuthorID         string                  `json:"author_id"`
	AuthorName       string                  `json:"author_name,omitempty"`
	Text             string                  `json:"text,omitempty"`
	Summary          string                  `json:"summary,omitempty"`
	ModerationStatus models.ModerationStatus `json:"moderation_status"`
	CreatedAt        time.Time               `json:"created_at"`
}

// NewPostPayload builds the room view of p.
func NewPostPayload(p *models.Post) PostPayload {
	payload := PostPayload{
		PostID:           p.ID,
		ThreadID:         p.ThreadID,
		AuthorID:         p.AuthoredByID,
		ModerationStatus: p.ModerationStatus,
		CreatedAt:        p.CreatedAt,
	}
	if p.AuthoredBy != nil {
		payload.AuthorName = p.AuthoredBy.Name()
	}
	if p.IsVisible() {
		payload.Text = p.Text
		payload.Summary = p.Summary()
	}
	return payload
}

// ThreadPayload carries the thread fields a room renders in its header.
type ThreadPayload struct {
	ThreadID         string                  `json:"thread_id"`
	Title            string                  `json:"title"`
	IsPinned         bool                    `json:"is_pinned"`
	Closed           bool                    `json:"closed"`
	ModerationStatus models.ModerationStatus `json:"moderation_status"`
	PostCount        int                     `json:"post_count"`
	Location         string                  `json:"location"`
}

// NewThreadPayload builds the room view of t.
func NewThreadPayload(t *models.Thread) ThreadPayload {
	return ThreadPayload{
		ThreadID:         t.ID,
		Title:            t.Title,
		IsPinned:         t.IsPinned,
		Closed:           t.IsClosed(),
		ModerationStatus: t.ModerationStatus,
		PostCount:        t.PostCount,
		Location:         t.Location(),
	}
}
