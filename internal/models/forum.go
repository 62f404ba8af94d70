package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/zfogg/tinyforum/backend/internal/sanitize"
	"gorm.io/gorm"
)

// ModerationStatus is shared by threads, posts and reports.
type ModerationStatus string

const (
	StatusGood    ModerationStatus = "good"
	StatusFlagged ModerationStatus = "flagged"
	StatusHidden  ModerationStatus = "hidden"
)

// Valid reports whether s is one of the known statuses.
func (s ModerationStatus) Valid() bool {
	switch s {
	case StatusGood, StatusFlagged, StatusHidden:
		return true
	}
	return false
}

// ValidAction reports whether s may be chosen when handling a report.
// Handling either approves the content or hides it.
func (s ModerationStatus) ValidAction() bool {
	return s == StatusGood || s == StatusHidden
}

// ActionLabel is the moderator-facing description of a report action.
func (s ModerationStatus) ActionLabel() string {
	switch s {
	case StatusGood:
		return "approve content"
	case StatusHidden:
		return "hide content"
	}
	return string(s)
}

// ReportReason is why a user reported a post.
type ReportReason string

const (
	ReasonAnnoying  ReportReason = "annoying"
	ReasonMisplaced ReportReason = "misplaced"
	ReasonSpam      ReportReason = "spam"
)

// ReportReasons lists the reasons in display order.
var ReportReasons = []ReportReason{ReasonAnnoying, ReasonMisplaced, ReasonSpam}

// Valid reports whether r is one of the known reasons.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonAnnoying, ReasonMisplaced, ReasonSpam:
		return true
	}
	return false
}

// Label returns the human readable reason.
func (r ReportReason) Label() string {
	switch r {
	case ReasonAnnoying:
		return "It's annoying or not interesting"
	case ReasonMisplaced:
		return "I think it shouldn't be here"
	case ReasonSpam:
		return "It's spam"
	}
	return string(r)
}

const (
	// MaxTitleLength bounds Thread.Title.
	MaxTitleLength = 200

	ThreadListPath = "/api/v1/threads"
)

// Thread is a discussion topic. PostCount and LatestPostID are a cache of
// the thread's visible posts and are only written by the forum service.
type Thread struct {
	ID               string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthoredByID     string           `gorm:"type:varchar(36);not null;index" json:"authored_by_id"`
	AuthoredBy       *User            `gorm:"foreignKey:AuthoredByID" json:"authored_by,omitempty"`
	ModerationStatus ModerationStatus `gorm:"type:varchar(10);not null;default:good;index" json:"moderation_status"`

	Title    string     `gorm:"type:varchar(200);not null" json:"title"`
	IsPinned bool       `gorm:"default:false" json:"is_pinned"`
	ClosedAt *time.Time `json:"closed_at"`

	LatestPostID *string `gorm:"type:varchar(36)" json:"latest_post_id"`
	LatestPost   *Post   `gorm:"-" json:"latest_post,omitempty"`
	PostCount    int     `gorm:"default:0" json:"post_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the primary key.
func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.ModerationStatus == "" {
		t.ModerationStatus = StatusGood
	}
	return nil
}

func (t *Thread) String() string { return t.Title }

// IsClosed reports whether replies are no longer accepted.
func (t *Thread) IsClosed() bool { return t.ClosedAt != nil }

// IsHidden reports whether moderators removed the thread from view.
func (t *Thread) IsHidden() bool { return t.ModerationStatus == StatusHidden }

// Location is where clients should go after touching the thread. Hidden
// threads have no detail page, so they resolve to the thread list.
func (t *Thread) Location() string {
	if t.IsHidden() {
		return ThreadListPath
	}
	return ThreadListPath + "/" + t.ID
}

// Post is a reply inside a thread. Text holds sanitized HTML.
type Post struct {
	ID               string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ThreadID         string           `gorm:"type:varchar(36);not null;index" json:"thread_id"`
	Thread           *Thread          `gorm:"foreignKey:ThreadID" json:"-"`
	AuthoredByID     string           `gorm:"type:varchar(36);not null;index" json:"authored_by_id"`
	AuthoredBy       *User            `gorm:"foreignKey:AuthoredByID" json:"authored_by,omitempty"`
	ModerationStatus ModerationStatus `gorm:"type:varchar(10);not null;default:good;index" json:"moderation_status"`

	Text string `gorm:"type:text;not null" json:"text"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the primary key.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.ModerationStatus == "" {
		p.ModerationStatus = StatusGood
	}
	return nil
}

// Summary is the plain-text opening of the post, at most 20 words.
func (p *Post) Summary() string {
	return sanitize.TruncateWords(sanitize.StripTags(p.Text), 20, "...")
}

func (p *Post) String() string { return p.Summary() }

// IsVisible reports whether the post is shown to readers.
func (p *Post) IsVisible() bool { return p.ModerationStatus != StatusHidden }

// ThreadStar records that a user bookmarked a thread.
type ThreadStar struct {
	ThreadID  string    `gorm:"primaryKey;type:varchar(36)" json:"thread_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(36);index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostReport is a user's complaint about a post. A report is open until a
// moderator handles it; ModerationStatus then records the action taken.
type PostReport struct {
	ID           string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthoredByID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_reports_author_post" json:"authored_by_id"`
	AuthoredBy   *User  `gorm:"foreignKey:AuthoredByID" json:"authored_by,omitempty"`
	PostID       string `gorm:"type:varchar(36);not null;uniqueIndex:idx_post_reports_author_post;index" json:"post_id"`
	Post         *Post  `gorm:"foreignKey:PostID" json:"post,omitempty"`

	Reason ReportReason `gorm:"type:varchar(10);not null" json:"reason"`
	Notes  string       `gorm:"type:text" json:"notes"`

	ModerationStatus ModerationStatus `gorm:"type:varchar(10);not null;default:flagged" json:"moderation_status"`
	HandledAt        *time.Time       `gorm:"index" json:"handled_at"`
	HandledByID      *string          `gorm:"type:varchar(36)" json:"handled_by_id"`
	HandledBy        *User            `gorm:"foreignKey:HandledByID" json:"handled_by,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the primary key and the initial flagged status.
func (r *PostReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ModerationStatus == "" {
		r.ModerationStatus = StatusFlagged
	}
	return nil
}

// IsHandled reports whether a moderator already acted on the report.
func (r *PostReport) IsHandled() bool { return r.HandledAt != nil }

// All lists every model for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Thread{},
		&Post{},
		&ThreadStar{},
		&PostReport{},
	}
}
