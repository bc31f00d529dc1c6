package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lumen/internal/cache"
	"lumen/internal/models"

	"github.com/redis/go-redis/v9"
)

const storyFeedKey = "stories:feed"

// StoryRepository defines persistence operations for ephemeral stories.
// Stories live entirely in Redis; expiry is enforced by key TTLs.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id string) (*models.Story, error)
	ListActive(ctx context.Context, limit int) ([]*models.Story, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]*models.Story, error)
}

type storyRepository struct {
	rdb *redis.Client
}

// NewStoryRepository returns a new StoryRepository backed by Redis.
func NewStoryRepository(rdb *redis.Client) StoryRepository {
	return &storyRepository{rdb: rdb}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	if r.rdb == nil {
		return models.NewInternalError(fmt.Errorf("story store unavailable"))
	}

	b, err := json.Marshal(story)
	if err != nil {
		return models.NewInternalError(err)
	}

	ttl := time.Until(story.ExpiresAt)
	if ttl <= 0 {
		return models.NewValidationError("Story is already expired")
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, cache.StoryKey(story.ID), b, ttl)
	pipe.ZAdd(ctx, storyFeedKey, redis.Z{Score: float64(story.ExpiresAt.Unix()), Member: story.ID})
	pipe.ZAdd(ctx, cache.StoryAuthorSetKey(story.AuthorID), redis.Z{Score: float64(story.ExpiresAt.Unix()), Member: story.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *storyRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	if r.rdb == nil {
		return nil, models.NewInternalError(fmt.Errorf("story store unavailable"))
	}

	s, err := r.rdb.Get(ctx, cache.StoryKey(id)).Result()
	if err == redis.Nil {
		return nil, models.NewNotFoundError("Story", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var story models.Story
	if err := json.Unmarshal([]byte(s), &story); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &story, nil
}

func (r *storyRepository) ListActive(ctx context.Context, limit int) ([]*models.Story, error) {
	if r.rdb == nil {
		return nil, models.NewInternalError(fmt.Errorf("story store unavailable"))
	}

	now := time.Now().Unix()
	// Prune index entries whose stories have expired.
	r.rdb.ZRemRangeByScore(ctx, storyFeedKey, "-inf", fmt.Sprintf("%d", now))

	ids, err := r.rdb.ZRevRange(ctx, storyFeedKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.loadStories(ctx, ids)
}

func (r *storyRepository) ListByAuthor(ctx context.Context, authorID uint) ([]*models.Story, error) {
	if r.rdb == nil {
		return nil, models.NewInternalError(fmt.Errorf("story store unavailable"))
	}

	key := cache.StoryAuthorSetKey(authorID)
	now := time.Now().Unix()
	r.rdb.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", now))

	ids, err := r.rdb.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.loadStories(ctx, ids)
}

func (r *storyRepository) loadStories(ctx context.Context, ids []string) ([]*models.Story, error) {
	if len(ids) == 0 {
		return []*models.Story{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.StoryKey(id)
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	stories := make([]*models.Story, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// TTL fired between index read and fetch; skip.
			continue
		}
		var story models.Story
		if err := json.Unmarshal([]byte(s), &story); err != nil {
			continue
		}
		stories = append(stories, &story)
	}
	return stories, nil
}
