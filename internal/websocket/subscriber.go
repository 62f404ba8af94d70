package websocket

import (
	"context"

	"github.com/zfogg/tinyforum/backend/internal/events"
)

// SubscribeForumEvents relays forum events to the affected thread rooms.
func SubscribeForumEvents(bus *events.Bus, hub *Hub) {
	bus.Subscribe(events.PostCreated, "websocket", func(ctx context.Context, ev events.Event) error {
		if ev.Post == nil || !ev.Post.IsVisible() {
			return nil
		}
		hub.BroadcastToThread(ev.Post.ThreadID, NewMessage(MessageTypeNewPost, NewPostPayload(ev.Post)))
		return nil
	})

	postModerated := func(ctx context.Context, ev events.Event) error {
		if ev.Post == nil {
			return nil
		}
		hub.BroadcastToThread(ev.Post.ThreadID, NewMessage(MessageTypePostModerated, NewPostPayload(ev.Post)))
		return nil
	}
	bus.Subscribe(events.PostUpdated, "websocket", postModerated)
	bus.Subscribe(events.PostReportHandled, "websocket", postModerated)

	bus.Subscribe(events.ThreadUpdated, "websocket", func(ctx context.Context, ev events.Event) error {
		if ev.Thread == nil {
			return nil
		}
		hub.BroadcastToThread(ev.Thread.ID, NewMessage(MessageTypeThreadUpdated, NewThreadPayload(ev.Thread)))
		return nil
	})
}
