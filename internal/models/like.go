package models

import "time"

// Like represents a user's like on a post. The combination of UserID and
// PostID is unique, so a user can hold at most one like per post; the
// toggle path relies on that index for its conflict target.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
