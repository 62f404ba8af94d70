package forum

import (
	"context"

	"github.com/zfogg/tinyforum/backend/internal/events"
	"github.com/zfogg/tinyforum/backend/internal/models"
	"github.com/zfogg/tinyforum/backend/internal/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostPage is one page of a thread's visible posts. CanPost is only true
// on the last page, where the reply form belongs.
type PostPage struct {
	Thread  *models.Thread  `json:"thread"`
	Posts   []models.Post   `json:"posts"`
	Page    pagination.Page `json:"page"`
	CanPost bool            `json:"can_post"`
	Starred bool            `json:"starred"`
}

// UpdatePostInput carries optional changes. ModerationStatus is only
// applied for moderators.
type UpdatePostInput struct {
	Text             *string                  `json:"text"`
	ModerationStatus *models.ModerationStatus `json:"moderation_status"`
}

// ListPosts returns a page of the visible posts of a visible thread.
func (s *Service) ListPosts(ctx context.Context, actor Actor, threadID, rawPage string) (*PostPage, error) {
	thread, err := s.GetVisibleThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Post{}).Scopes(Visible).Where("thread_id = ?", thread.ID).Count(&count).Error; err != nil {
		return nil, err
	}

	p := pagination.Paginator{Count: int(count), PerPage: pagination.PostsPerPage, Orphans: pagination.PostOrphans}
	page := p.GetPage(rawPage)

	var posts []models.Post
	if err := db.Scopes(Visible, PostOrder).
		Preload("AuthoredBy").
		Where("thread_id = ?", thread.ID).
		Offset(page.Offset).Limit(page.Limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	result := &PostPage{
		Thread:  thread,
		Posts:   posts,
		Page:    page,
		CanPost: page.IsLast && PostPermission(actor, thread, nil).Allowed(),
	}
	if actor.Authenticated() {
		if result.Starred, err = s.IsStarred(ctx, actor.ID(), thread.ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetPost loads a post with its thread in any moderation state.
func (s *Service) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).
		Preload("Thread").
		Preload("AuthoredBy").
		First(&post, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// PostForm loads a post together with the form the actor may use on it.
func (s *Service) PostForm(ctx context.Context, actor Actor, id string) (*models.Post, Form, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, Form{}, err
	}
	return post, PostPermission(actor, post.Thread, post), nil
}

// CreatePost replies to a visible, open thread.
func (s *Service) CreatePost(ctx context.Context, actor Actor, threadID, rawText string) (*models.Post, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	thread, err := s.GetVisibleThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !PostPermission(actor, thread, nil).Allowed() {
		return nil, ErrThreadClosed
	}
	text, err := cleanText(rawText)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		ThreadID:         thread.ID,
		AuthoredByID:     actor.ID(),
		ModerationStatus: models.StatusGood,
		Text:             text,
		CreatedAt:        s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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

	post.AuthoredBy = actor.User
	post.Thread = thread
	s.publish(ctx, events.Event{Kind: events.PostCreated, Thread: thread, Post: post, Actor: actor.User})
	return post, nil
}

// UpdatePost applies the fields the actor's post form allows.
func (s *Service) UpdatePost(ctx context.Context, actor Actor, id string, in UpdatePostInput) (*models.Post, error) {
	post, form, err := s.PostForm(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !form.Allowed() {
		switch {
		case !actor.Authenticated():
			return nil, ErrUnauthenticated
		case post.Thread != nil && post.Thread.IsClosed():
			return nil, ErrThreadClosed
		}
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{}
	if in.Text != nil && form.Allows(FieldText) {
		text, err := cleanText(*in.Text)
		if err != nil {
			return nil, err
		}
		updates["text"] = text
	}
	if in.ModerationStatus != nil && form.Allows(FieldModerationStatus) {
		if !in.ModerationStatus.Valid() {
			return nil, invalid(FieldModerationStatus, "select a valid choice")
		}
		updates["moderation_status"] = *in.ModerationStatus
	}
	if len(updates) == 0 {
		return post, nil
	}
	updates["updated_at"] = s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
			return err
		}
		if err := refreshPostStats(tx, post); err != nil {
			return err
		}
		return tx.Preload("Thread").Preload("AuthoredBy").First(post, "id = ?", post.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{Kind: events.PostUpdated, Thread: post.Thread, Post: post, Actor: actor.User})
	return post, nil
}

// LastPageLocation is where a client lands after replying.
func LastPageLocation(thread *models.Thread) string {
	return thread.Location() + "?page=last"
}
