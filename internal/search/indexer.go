package search

import (
	"context"
	"fmt"

	"github.com/zfogg/tinyforum/backend/internal/events"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Index is what the indexer writes to. *Client implements it.
type Index interface {
	IndexThread(ctx context.Context, t *models.Thread) error
	IndexPost(ctx context.Context, p *models.Post) error
}

// SubscribeForumEvents keeps the index in step with forum writes.
func SubscribeForumEvents(bus *events.Bus, idx Index) {
	thread := func(ctx context.Context, ev events.Event) error {
		if ev.Thread == nil {
			return nil
		}
		return idx.IndexThread(ctx, ev.Thread)
	}
	post := func(ctx context.Context, ev events.Event) error {
		if ev.Post == nil {
			return nil
		}
		return idx.IndexPost(ctx, ev.Post)
	}

	bus.Subscribe(events.ThreadCreated, "search", thread)
	bus.Subscribe(events.ThreadUpdated, "search", thread)
	bus.Subscribe(events.PostCreated, "search", post)
	bus.Subscribe(events.PostUpdated, "search", post)
	bus.Subscribe(events.PostReportHandled, "search", post)
}

const reindexBatchSize = 200

// Reindex rebuilds the index from the database, e.g. after the index was
// dropped or events were missed while the cluster was down.
func Reindex(ctx context.Context, db *gorm.DB, idx Index) (threads, posts int, err error) {
	var threadBatch []models.Thread
	res := db.WithContext(ctx).Preload("AuthoredBy").
		FindInBatches(&threadBatch, reindexBatchSize, func(tx *gorm.DB, batch int) error {
			for i := range threadBatch {
				if err := idx.IndexThread(ctx, &threadBatch[i]); err != nil {
					return fmt.Errorf("thread %s: %w", threadBatch[i].ID, err)
				}
				threads++
			}
			return nil
		})
	if res.Error != nil {
		return threads, posts, res.Error
	}

	var postBatch []models.Post
	res = db.WithContext(ctx).Preload("AuthoredBy").
		FindInBatches(&postBatch, reindexBatchSize, func(tx *gorm.DB, batch int) error {
			for i := range postBatch {
				if err := idx.IndexPost(ctx, &postBatch[i]); err != nil {
					return fmt.Errorf("post %s: %w", postBatch[i].ID, err)
				}
				posts++
			}
			return nil
		})
	if res.Error != nil {
		return threads, posts, res.Error
	}

	logger.Log.Info("Search index rebuilt", zap.Int("threads", threads), zap.Int("posts", posts))
	return threads, posts, nil
}
