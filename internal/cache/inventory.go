package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	ProfileKeyPrefix     = "profile:%d"
	PostKeyPrefix        = "post:%d"
	StoryKeyPrefix       = "story:%s"
	StoryAuthorSetPrefix = "stories:author:%d"
	IdempotencyPrefix    = "idempotency:post:%d:%s"
	TokenBlacklistPrefix = "jwt:blacklist:%s"
)

const (
	UserTTL        = 5 * time.Minute
	ProfileTTL     = 5 * time.Minute
	PostTTL        = 30 * time.Minute
	StoryTTL       = 24 * time.Hour
	IdempotencyTTL = 24 * time.Hour
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func StoryKey(storyID string) string {
	return fmt.Sprintf(StoryKeyPrefix, storyID)
}

func StoryAuthorSetKey(authorID uint) string {
	return fmt.Sprintf(StoryAuthorSetPrefix, authorID)
}

func IdempotencyKey(userID uint, key string) string {
	return fmt.Sprintf(IdempotencyPrefix, userID, key)
}

func TokenBlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistPrefix, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
	Invalidate(ctx, ProfileKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}
