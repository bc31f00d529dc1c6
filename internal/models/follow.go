package models

import "time"

// Follow is a directed edge in the follow graph: FollowerID follows
// FolloweeID. The pair is unique.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follow_edge" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_follow_edge;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
