// Package events delivers forum notifications to in-process subscribers.
// Handlers run synchronously in Publish, in subscription order. A failing
// or panicking handler is logged and never affects the publisher.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"go.uber.org/zap"
)

// Kind names an event.
type Kind string

const (
	// ThreadCreated fires once for a new thread, before the PostCreated of
	// its first post.
	ThreadCreated Kind = "thread_created"
	// PostCreated fires after a post and its thread counters are saved.
	PostCreated Kind = "post_created"
	// PostUpdated fires after an author or moderator edited a post.
	PostUpdated Kind = "post_updated"
	// PostReported fires after a user filed a report.
	PostReported Kind = "post_reported"
	// PostReportHandled fires after a moderator resolved a report.
	PostReportHandled Kind = "post_report_handled"
	// ThreadUpdated fires after a thread's title, pin, close or moderation
	// state changed.
	ThreadUpdated Kind = "thread_updated"
)

// Event carries the records involved. Only the fields relevant to Kind are
// set.
type Event struct {
	Kind   Kind
	Thread *models.Thread
	Post   *models.Post
	Report *models.PostReport
	// Actor is the user whose request caused the event.
	Actor *models.User
}

// Handler reacts to an event.
type Handler func(ctx context.Context, ev Event) error

// Publisher is what the forum service depends on.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Bus is a Publisher with named subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]subscription
}

type subscription struct {
	name string
	fn   Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]subscription)}
}

// Subscribe registers fn for kind. name shows up in logs when fn fails.
func (b *Bus) Subscribe(kind Kind, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], subscription{name: name, fn: fn})
}

// Publish delivers ev to every handler subscribed to ev.Kind.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[ev.Kind]...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := b.call(ctx, s, ev); err != nil {
			logger.Log.Warn("Event handler failed",
				zap.String("event", string(ev.Kind)),
				zap.String("handler", s.name),
				zap.Error(err),
			)
		}
	}
}

func (b *Bus) call(ctx context.Context, s subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.fn(ctx, ev)
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) {}
