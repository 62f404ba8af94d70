// Package forum implements threads, posts, stars and the report moderation
// workflow on top of gorm. Handlers call it with an Actor; it returns
// models or the sentinel errors in errors.go.
package forum

import (
	"context"
	"errors"
	"time"

	"github.com/zfogg/tinyforum/backend/internal/events"
	"gorm.io/gorm"
)

// StarCache remembers which threads a user starred. Implementations must
// tolerate misses; the database stays the source of truth.
type StarCache interface {
	Get(ctx context.Context, userID string) ([]string, bool)
	Set(ctx context.Context, userID string, threadIDs []string)
	Invalidate(ctx context.Context, userID string)
}

// Searcher finds thread ids for a full text query, best match first.
type Searcher interface {
	SearchThreads(ctx context.Context, query string, limit int) ([]string, error)
}

// Service is the forum's business layer.
type Service struct {
	db       *gorm.DB
	events   events.Publisher
	stars    StarCache
	searcher Searcher
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEvents routes notifications to p.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithStarCache caches starred thread ids.
func WithStarCache(c StarCache) Option {
	return func(s *Service) { s.stars = c }
}

// WithSearcher enables full text search. Without it Search falls back to
// SQL pattern matching.
func WithSearcher(sr Searcher) Option {
	return func(s *Service) { s.searcher = sr }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a forum service on db.
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:     db,
		events: events.Nop{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the connection for callers that share the service's database.
func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) publish(ctx context.Context, ev events.Event) {
	s.events.Publish(ctx, ev)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
