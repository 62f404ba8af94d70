package forum

import (
	"context"
	"errors"
	"strings"

	"github.com/zfogg/tinyforum/backend/internal/events"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportInput is a user's complaint about a post.
type ReportInput struct {
	Reason models.ReportReason `json:"reason"`
	Notes  string              `json:"notes"`
}

// HasReported reports whether userID already filed a report on postID.
func (s *Service) HasReported(ctx context.Context, userID, postID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.PostReport{}).
		Where("authored_by_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	return n > 0, err
}

// ReportPost files a report. A post in good standing becomes flagged; one
// already flagged or hidden keeps its status.
func (s *Service) ReportPost(ctx context.Context, actor Actor, postID string, in ReportInput) (*models.PostReport, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	reported, err := s.HasReported(ctx, actor.ID(), post.ID)
	if err != nil {
		return nil, err
	}
	if reported {
		return nil, ErrAlreadyReported
	}
	if !in.Reason.Valid() {
		return nil, invalid(FieldReason, "select a valid choice")
	}

	report := &models.PostReport{
		AuthoredByID:     actor.ID(),
		PostID:           post.ID,
		Reason:           in.Reason,
		Notes:            strings.TrimSpace(in.Notes),
		ModerationStatus: models.StatusFlagged,
		CreatedAt:        s.now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(report).Error; err != nil {
			return err
		}
		if post.ModerationStatus != models.StatusGood {
			return nil
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ? AND moderation_status = ?", post.ID, models.StatusGood).
			Update("moderation_status", models.StatusFlagged).Error; err != nil {
			return err
		}
		post.ModerationStatus = models.StatusFlagged
		return refreshPostStats(tx, post)
	})
	if err != nil {
		// The unique index catches a concurrent duplicate the lookup missed.
		if again, lookupErr := s.HasReported(ctx, actor.ID(), post.ID); lookupErr == nil && again {
			return nil, ErrAlreadyReported
		}
		return nil, err
	}

	report.Post = post
	report.AuthoredBy = actor.User
	s.publish(ctx, events.Event{Kind: events.PostReported, Thread: post.Thread, Post: post, Report: report, Actor: actor.User})
	return report, nil
}

// ListOpenReports returns unhandled reports oldest first, leaving out the
// moderator's own reports.
func (s *Service) ListOpenReports(ctx context.Context, actor Actor) ([]models.PostReport, error) {
	if !actor.IsModerator {
		return nil, ErrNotModerator
	}
	reports := []models.PostReport{}
	err := s.openReports(ctx, actor).
		Order("post_reports.created_at ASC").
		Find(&reports).Error
	return reports, err
}

// GetOpenReport loads one report the moderator may handle.
func (s *Service) GetOpenReport(ctx context.Context, actor Actor, id string) (*models.PostReport, error) {
	if !actor.IsModerator {
		return nil, ErrNotModerator
	}
	var report models.PostReport
	if err := s.openReports(ctx, actor).First(&report, "post_reports.id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

func (s *Service) openReports(ctx context.Context, actor Actor) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("AuthoredBy").
		Preload("Post").
		Preload("Post.AuthoredBy").
		Preload("Post.Thread").
		Where("post_reports.handled_at IS NULL AND post_reports.authored_by_id <> ?", actor.ID())
}

// HandleReport resolves an open report with action (good or hidden) and
// applies the action to the reported post. The report is claimed with a
// conditional update, so when moderators race exactly one succeeds and the
// others get ErrReportUnavailable.
func (s *Service) HandleReport(ctx context.Context, actor Actor, id string, action models.ModerationStatus) (*models.PostReport, error) {
	if !actor.IsModerator {
		return nil, ErrNotModerator
	}
	if !action.ValidAction() {
		return nil, invalid(FieldModerationStatus, "select a valid choice")
	}

	var report models.PostReport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		handledBy := actor.ID()
		res := tx.Model(&models.PostReport{}).
			Where("id = ? AND handled_at IS NULL AND authored_by_id <> ?", id, actor.ID()).
			Updates(map[string]interface{}{
				"handled_at":        now,
				"handled_by_id":     handledBy,
				"moderation_status": action,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.PostReport{}).Where("id = ?", id).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return ErrNotFound
			}
			return ErrReportUnavailable
		}

		if err := tx.First(&report, "id = ?", id).Error; err != nil {
			return err
		}

		var post models.Post
		if err := tx.First(&post, "id = ?", report.PostID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			Updates(map[string]interface{}{"moderation_status": action, "updated_at": now}).Error; err != nil {
			return err
		}
		if err := refreshPostStats(tx, &post); err != nil {
			return err
		}
		return tx.Preload("AuthoredBy").Preload("HandledBy").
			Preload("Post").Preload("Post.AuthoredBy").Preload("Post.Thread").
			First(&report, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, ErrReportUnavailable) {
			return nil, err
		}
		return nil, notFound(err)
	}

	var thread *models.Thread
	if report.Post != nil {
		thread = report.Post.Thread
	}
	s.publish(ctx, events.Event{Kind: events.PostReportHandled, Thread: thread, Post: report.Post, Report: &report, Actor: actor.User})
	return &report, nil
}
