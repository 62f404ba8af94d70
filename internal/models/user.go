package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a forum account. Moderators may triage reports and edit any
// thread or post.
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`

	PasswordHash *string `gorm:"type:text" json:"-"`
	IsModerator  bool    `gorm:"default:false" json:"is_moderator"`

	// Visible posts authored by this user, refreshed whenever one of
	// their posts is saved or moderated.
	PostCount int `gorm:"default:0" json:"post_count"`

	LastActiveAt *time.Time `json:"last_active_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID so the schema works on both postgres and sqlite.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
