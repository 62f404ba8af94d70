package forum

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/zfogg/tinyforum/backend/internal/events"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"github.com/zfogg/tinyforum/backend/internal/pagination"
	"github.com/zfogg/tinyforum/backend/internal/sanitize"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThreadFilter selects which visible threads ListThreads returns.
type ThreadFilter string

const (
	FilterActive ThreadFilter = "active"
	FilterClosed ThreadFilter = "closed"
)

// ThreadPage is one page of the thread list.
type ThreadPage struct {
	Threads []models.Thread `json:"threads"`
	Page    pagination.Page `json:"page"`
}

// CreateThreadInput is the payload of a new thread. IsPinned is ignored
// unless the actor moderates.
type CreateThreadInput struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	IsPinned bool   `json:"is_pinned"`
}

// UpdateThreadInput carries optional changes. Fields outside the actor's
// form are ignored.
type UpdateThreadInput struct {
	Title            *string                  `json:"title"`
	IsPinned         *bool                    `json:"is_pinned"`
	ModerationStatus *models.ModerationStatus `json:"moderation_status"`
	CloseThread      bool                     `json:"close_thread"`
}

// ListThreads returns a page of active threads, or closed ones when filter
// is FilterClosed. rawPage follows pagination.GetPage.
func (s *Service) ListThreads(ctx context.Context, filter ThreadFilter, rawPage string) (*ThreadPage, error) {
	scope := ActiveThreads
	if filter == FilterClosed {
		scope = ClosedThreads
	}
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Thread{}).Scopes(scope).Count(&count).Error; err != nil {
		return nil, err
	}

	p := pagination.Paginator{Count: int(count), PerPage: pagination.ThreadsPerPage}
	page := p.GetPage(rawPage)

	var threads []models.Thread
	if err := db.Model(&models.Thread{}).
		Select("threads.*").
		Scopes(scope, ThreadOrder).
		Preload("AuthoredBy").
		Offset(page.Offset).Limit(page.Limit).
		Find(&threads).Error; err != nil {
		return nil, err
	}
	if err := attachLatestPosts(db, threads); err != nil {
		return nil, err
	}

	return &ThreadPage{Threads: threads, Page: page}, nil
}

// GetThread loads a thread in any moderation state.
func (s *Service) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	var thread models.Thread
	if err := s.db.WithContext(ctx).Preload("AuthoredBy").First(&thread, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &thread, nil
}

// GetVisibleThread loads a thread unless moderators hid it.
func (s *Service) GetVisibleThread(ctx context.Context, id string) (*models.Thread, error) {
	thread, err := s.GetThread(ctx, id)
	if err != nil {
		return nil, err
	}
	if thread.IsHidden() {
		return nil, ErrNotFound
	}
	return thread, nil
}

// CreateThread opens a thread with its first post. The author stars the
// new thread automatically.
func (s *Service) CreateThread(ctx context.Context, actor Actor, in CreateThreadInput) (*models.Thread, error) {
	form := ThreadPermission(actor, nil)
	if !form.Allowed() {
		return nil, ErrUnauthenticated
	}

	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	text, err := cleanText(in.Text)
	if err != nil {
		return nil, err
	}

	now := s.now()
	thread := &models.Thread{
		AuthoredByID:     actor.ID(),
		ModerationStatus: models.StatusGood,
		Title:            title,
		IsPinned:         form.Allows(FieldIsPinned) && in.IsPinned,
		CreatedAt:        now,
	}
	post := &models.Post{
		AuthoredByID:     actor.ID(),
		ModerationStatus: models.StatusGood,
		Text:             text,
		CreatedAt:        now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(thread).Error; err != nil {
			return err
		}
		star := &models.ThreadStar{ThreadID: thread.ID, UserID: actor.ID(), CreatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(star).Error; err != nil {
			return err
		}
		post.ThreadID = thread.ID
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		if err := refreshPostStats(tx, post); err != nil {
			return err
		}
		return tx.First(thread, "id = ?", thread.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStars(ctx, actor.ID())
	thread.AuthoredBy = actor.User
	thread.LatestPost = post
	post.AuthoredBy = actor.User

	s.publish(ctx, events.Event{Kind: events.ThreadCreated, Thread: thread, Post: post, Actor: actor.User})
	s.publish(ctx, events.Event{Kind: events.PostCreated, Thread: thread, Post: post, Actor: actor.User})
	return thread, nil
}

// ThreadForm loads a thread in any state together with the form the actor
// may use on it.
func (s *Service) ThreadForm(ctx context.Context, actor Actor, id string) (*models.Thread, Form, error) {
	thread, err := s.GetThread(ctx, id)
	if err != nil {
		return nil, Form{}, err
	}
	return thread, ThreadPermission(actor, thread), nil
}

// UpdateThread applies the fields the actor's form allows. Closing sets
// closed_at; a closed thread cannot be reopened here.
func (s *Service) UpdateThread(ctx context.Context, actor Actor, id string, in UpdateThreadInput) (*models.Thread, error) {
	thread, form, err := s.ThreadForm(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !form.Allowed() {
		if !actor.Authenticated() {
			return nil, ErrUnauthenticated
		}
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{}
	if in.Title != nil && form.Allows(FieldTitle) {
		title, err := cleanTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if in.IsPinned != nil && form.Allows(FieldIsPinned) {
		updates["is_pinned"] = *in.IsPinned
	}
	if in.ModerationStatus != nil && form.Allows(FieldModerationStatus) {
		if !in.ModerationStatus.Valid() {
			return nil, invalid(FieldModerationStatus, "select a valid choice")
		}
		updates["moderation_status"] = *in.ModerationStatus
	}
	if in.CloseThread && form.Allows(FieldCloseThread) {
		updates["closed_at"] = s.now()
	}
	if len(updates) == 0 {
		return thread, nil
	}
	updates["updated_at"] = s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Thread{}).Where("id = ?", thread.ID).Updates(updates).Error; err != nil {
			return err
		}
		if err := RefreshThread(tx, thread.ID); err != nil {
			return err
		}
		return tx.Preload("AuthoredBy").First(thread, "id = ?", thread.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{Kind: events.ThreadUpdated, Thread: thread, Actor: actor.User})
	return thread, nil
}

func cleanTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", invalid(FieldTitle, "this field is required")
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return "", invalid(FieldTitle, "ensure this value has at most 200 characters")
	}
	return title, nil
}

func cleanText(raw string) (string, error) {
	text := sanitize.Post(raw)
	if sanitize.IsBlank(text) {
		return "", invalid(FieldText, "this field is required")
	}
	return text, nil
}
