package forum

import (
	"errors"

	"github.com/zfogg/tinyforum/backend/internal/models"
	"gorm.io/gorm"
)

// Visible excludes hidden rows of any moderated table.
func Visible(db *gorm.DB) *gorm.DB {
	return db.Where("moderation_status <> ?", models.StatusHidden)
}

// ActiveThreads are visible and still accept replies.
func ActiveThreads(db *gorm.DB) *gorm.DB {
	return db.Where("threads.moderation_status <> ? AND threads.closed_at IS NULL", models.StatusHidden)
}

// ClosedThreads are visible but no longer accept replies.
func ClosedThreads(db *gorm.DB) *gorm.DB {
	return db.Where("threads.moderation_status <> ? AND threads.closed_at IS NOT NULL", models.StatusHidden)
}

// ThreadOrder sorts pinned threads first, then by latest activity. Threads
// without a visible post sort after those with one on every dialect.
func ThreadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Joins("LEFT JOIN posts latest ON latest.id = threads.latest_post_id").
		Order("threads.is_pinned DESC").
		Order("CASE WHEN latest.created_at IS NULL THEN 1 ELSE 0 END").
		Order("latest.created_at DESC").
		Order("threads.created_at DESC")
}

// PostOrder is chronological.
func PostOrder(db *gorm.DB) *gorm.DB {
	return db.Order("posts.created_at ASC").Order("posts.id ASC")
}

// RefreshThread recomputes the thread's visible post count and latest
// visible post. It must run after any post of the thread is created,
// edited or moderated.
func RefreshThread(tx *gorm.DB, threadID string) error {
	var count int64
	if err := tx.Model(&models.Post{}).
		Scopes(Visible).
		Where("thread_id = ?", threadID).
		Count(&count).Error; err != nil {
		return err
	}

	var latestID *string
	var latest models.Post
	err := tx.Select("id").
		Scopes(Visible).
		Where("thread_id = ?", threadID).
		Order("created_at DESC").Order("id DESC").
		Take(&latest).Error
	switch {
	case err == nil:
		latestID = &latest.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	return tx.Model(&models.Thread{}).
		Where("id = ?", threadID).
		UpdateColumns(map[string]interface{}{
			"post_count":     count,
			"latest_post_id": latestID,
		}).Error
}

// RefreshAuthorPostCount recomputes how many visible posts userID wrote.
func RefreshAuthorPostCount(tx *gorm.DB, userID string) error {
	var count int64
	if err := tx.Model(&models.Post{}).
		Scopes(Visible).
		Where("authored_by_id = ?", userID).
		Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("post_count", count).Error
}

// refreshPostStats runs both refreshes for a post that changed.
func refreshPostStats(tx *gorm.DB, post *models.Post) error {
	if err := RefreshThread(tx, post.ThreadID); err != nil {
		return err
	}
	return RefreshAuthorPostCount(tx, post.AuthoredByID)
}

// attachLatestPosts loads LatestPost (with author) for each thread.
func attachLatestPosts(db *gorm.DB, threads []models.Thread) error {
	ids := make([]string, 0, len(threads))
	for _, t := range threads {
		if t.LatestPostID != nil {
			ids = append(ids, *t.LatestPostID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var posts []models.Post
	if err := db.Preload("AuthoredBy").Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return err
	}
	byID := make(map[string]*models.Post, len(posts))
	for i := range posts {
		byID[posts[i].ID] = &posts[i]
	}
	for i := range threads {
		if threads[i].LatestPostID != nil {
			threads[i].LatestPost = byID[*threads[i].LatestPostID]
		}
	}
	return nil
}
