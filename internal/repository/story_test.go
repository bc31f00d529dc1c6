package repository

import (
	"context"
	"testing"
	"time"

	"lumen/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStoryRepo(t *testing.T) (StoryRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStoryRepository(rdb), mr
}

func TestStoryRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupStoryRepo(t)
	ctx := context.Background()

	story := &models.Story{
		ID:              "abc123",
		AuthorID:        1,
		AuthorUsername:  "alice",
		AuthorAvatarURL: "https://cdn.example.com/a.png",
		ImageURL:        "https://cdn.example.com/s1.jpg",
		CreatedAt:       time.Now(),
		ExpiresAt:       time.Now().Add(24 * time.Hour),
	}

	require.NoError(t, repo.Create(ctx, story))

	got, err := repo.GetByID(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.AuthorUsername)
	assert.Equal(t, story.ImageURL, got.ImageURL)
}

func TestStoryRepository_GetByID_NotFound(t *testing.T) {
	repo, _ := setupStoryRepo(t)

	_, err := repo.GetByID(context.Background(), "nope")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestStoryRepository_Create_RejectsExpired(t *testing.T) {
	repo, _ := setupStoryRepo(t)

	story := &models.Story{
		ID:        "old",
		AuthorID:  1,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	err := repo.Create(context.Background(), story)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestStoryRepository_ListActive_SkipsExpired(t *testing.T) {
	repo, mr := setupStoryRepo(t)
	ctx := context.Background()

	now := time.Now()
	fresh := &models.Story{ID: "fresh", AuthorID: 1, CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)}
	stale := &models.Story{ID: "stale", AuthorID: 2, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}

	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.Create(ctx, stale))

	stories, err := repo.ListActive(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, stories, 2)

	// Let the short-lived story's TTL fire.
	mr.FastForward(2 * time.Minute)

	stories, err = repo.ListActive(ctx, 50)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "fresh", stories[0].ID)
}

func TestStoryRepository_ListByAuthor(t *testing.T) {
	repo, _ := setupStoryRepo(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Create(ctx, &models.Story{ID: "s1", AuthorID: 1, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.Story{ID: "s2", AuthorID: 2, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	stories, err := repo.ListByAuthor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "s1", stories[0].ID)
}
