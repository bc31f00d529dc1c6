package models

import "time"

// Story is an ephemeral entity. It lives exclusively in Redis with a TTL
// and is never written to the relational store.
type Story struct {
	ID              string    `json:"id"`
	AuthorID        uint      `json:"author_id"`
	AuthorUsername  string    `json:"author_username"`
	AuthorAvatarURL string    `json:"author_avatar_url"`
	ImageURL        string    `json:"image_url"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}
