package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is an append-only comment on a post. There is no edit or delete
// path for comments; they disappear only when the owning post is deleted.
// Author fields are denormalized at creation time like on Post.
type Comment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PostID   uint   `gorm:"not null;index" json:"post_id"`
	AuthorID uint   `gorm:"not null" json:"author_id"`
	Text     string `gorm:"type:text;not null" json:"text"`

	AuthorUsername  string `gorm:"not null" json:"author_username"`
	AuthorAvatarURL string `json:"author_avatar_url"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
