package forum

import (
	"context"

	"github.com/zfogg/tinyforum/backend/internal/models"
	"gorm.io/gorm/clause"
)

// SetStar adds or removes the actor's star on a thread. Both directions
// are idempotent. Hidden and closed threads can still be starred.
func (s *Service) SetStar(ctx context.Context, actor Actor, threadID string, starred bool) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var err error
	if starred {
		err = db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ThreadStar{ThreadID: threadID, UserID: actor.ID(), CreatedAt: s.now()}).Error
	} else {
		err = db.Where("thread_id = ? AND user_id = ?", threadID, actor.ID()).
			Delete(&models.ThreadStar{}).Error
	}
	if err != nil {
		return err
	}

	s.invalidateStars(ctx, actor.ID())
	return nil
}

// StarredThreadIDs lists the threads userID starred, newest star first.
func (s *Service) StarredThreadIDs(ctx context.Context, userID string) ([]string, error) {
	if s.stars != nil {
		if ids, ok := s.stars.Get(ctx, userID); ok {
			return ids, nil
		}
	}

	ids := []string{}
	if err := s.db.WithContext(ctx).Model(&models.ThreadStar{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("thread_id", &ids).Error; err != nil {
		return nil, err
	}

	if s.stars != nil {
		s.stars.Set(ctx, userID, ids)
	}
	return ids, nil
}

// IsStarred reports whether userID starred threadID.
func (s *Service) IsStarred(ctx context.Context, userID, threadID string) (bool, error) {
	ids, err := s.StarredThreadIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == threadID {
			return true, nil
		}
	}
	return false, nil
}

// StarredThreads returns the visible threads userID starred in list order.
func (s *Service) StarredThreads(ctx context.Context, userID string) ([]models.Thread, error) {
	ids, err := s.StarredThreadIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	threads := []models.Thread{}
	if len(ids) == 0 {
		return threads, nil
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Thread{}).
		Select("threads.*").
		Scopes(ThreadOrder).
		Preload("AuthoredBy").
		Where("threads.id IN ? AND threads.moderation_status <> ?", ids, models.StatusHidden).
		Find(&threads).Error; err != nil {
		return nil, err
	}
	if err := attachLatestPosts(db, threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func (s *Service) invalidateStars(ctx context.Context, userID string) {
	if s.stars != nil {
		s.stars.Invalidate(ctx, userID)
	}
}
