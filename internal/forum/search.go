package forum

import (
	"context"
	"strings"

	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/metrics"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 20

// Search finds visible threads whose title or visible posts match query.
// The configured Searcher is tried first; SQL matching serves when none is
// configured or it fails.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Thread, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q", "this field is required")
	}
	if limit <= 0 || limit > 100 {
		limit = DefaultSearchLimit
	}

	if s.searcher != nil {
		ids, err := s.searcher.SearchThreads(ctx, query, limit)
		if err == nil {
			return s.threadsByID(ctx, ids)
		}
		logger.Log.Warn("Search backend failed, falling back to SQL",
			zap.String("query", query),
			zap.Error(err),
		)
	}
	threads, err := s.searchSQL(ctx, query, limit)
	metrics.RecordSearch("sql", err)
	return threads, err
}

func (s *Service) searchSQL(ctx context.Context, query string, limit int) ([]models.Thread, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	db := s.db.WithContext(ctx)

	postMatches := db.Model(&models.Post{}).
		Select("posts.thread_id").
		Where("posts.moderation_status <> ? AND LOWER(posts.text) LIKE ? ESCAPE '\\'", models.StatusHidden, pattern)

	threads := []models.Thread{}
	if err := db.Model(&models.Thread{}).
		Select("threads.*").
		Scopes(ThreadOrder).
		Preload("AuthoredBy").
		Where("threads.moderation_status <> ?", models.StatusHidden).
		Where(db.Where("LOWER(threads.title) LIKE ? ESCAPE '\\'", pattern).Or("threads.id IN (?)", postMatches)).
		Limit(limit).
		Find(&threads).Error; err != nil {
		return nil, err
	}
	if err := attachLatestPosts(db, threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// threadsByID loads visible threads keeping the order of ids.
func (s *Service) threadsByID(ctx context.Context, ids []string) ([]models.Thread, error) {
	threads := []models.Thread{}
	if len(ids) == 0 {
		return threads, nil
	}
	db := s.db.WithContext(ctx)

	var found []models.Thread
	if err := db.Preload("AuthoredBy").
		Where("id IN ? AND moderation_status <> ?", ids, models.StatusHidden).
		Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.Thread, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			threads = append(threads, t)
		}
	}
	if err := attachLatestPosts(db, threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
