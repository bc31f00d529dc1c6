package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a feed entry. Author fields are denormalized at creation
// time and intentionally never re-synced when the author's profile changes
// later. Only Text is mutable after creation; the image is immutable once
// set.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Text     string `gorm:"type:text" json:"text"`
	ImageURL string `json:"image_url,omitempty"`

	// Denormalized author snapshot (creation-time values).
	AuthorUsername  string `gorm:"not null" json:"author_username"`
	AuthorAvatarURL string `json:"author_avatar_url"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->" json:"comments_count"`
	// LikedByViewer indicates whether the requesting user liked this post (computed)
	LikedByViewer bool `gorm:"->" json:"liked_by_viewer"`

	CreatedAt time.Time `json:"created_at"`
	// EditedAt is set only after the post's text has been edited.
	EditedAt  *time.Time     `json:"edited_at,omitempty"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasContent reports whether the post carries at least one of text or image,
// the minimum required for publishing.
func (p *Post) HasContent() bool {
	return p.Text != "" || p.ImageURL != ""
}
