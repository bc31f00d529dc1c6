// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultAvatarURL is used for profiles created lazily from an auth identity
// that carries no avatar of its own.
const DefaultAvatarURL = "https://cdn-icons-png.flaticon.com/512/847/847969.png"

// User represents a profile document in the Lumen application.
type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Username    string `gorm:"unique;not null" json:"username"`
	Email       string `gorm:"unique;not null" json:"email"`
	Password    string `gorm:"not null" json:"-"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	// PostsCount, FollowersCount and FollowingCount are not persisted;
	// computed at query time
	PostsCount     int            `gorm:"->" json:"posts_count"`
	FollowersCount int            `gorm:"->" json:"followers_count"`
	FollowingCount int            `gorm:"->" json:"following_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	Posts          []Post         `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
}
