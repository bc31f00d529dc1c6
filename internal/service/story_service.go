package service

import (
	"context"
	"time"

	"lumen/internal/models"
	"lumen/internal/repository"

	"github.com/google/uuid"
)

// StoryTTL is how long a story stays visible after posting.
const StoryTTL = 24 * time.Hour

// StoryService manages ephemeral image stories.
type StoryService struct {
	storyRepo repository.StoryRepository
	userRepo  repository.UserRepository
	media     MediaUploader
}

type CreateStoryInput struct {
	UserID uint
	Image  UploadMediaInput
}

func NewStoryService(
	storyRepo repository.StoryRepository,
	userRepo repository.UserRepository,
	media MediaUploader,
) *StoryService {
	return &StoryService{
		storyRepo: storyRepo,
		userRepo:  userRepo,
		media:     media,
	}
}

// CreateStory uploads the image and publishes a story that expires after 24
// hours. Stories are image-only; the author snapshot follows the same
// denormalization rule as posts.
func (s *StoryService) CreateStory(ctx context.Context, in CreateStoryInput) (*models.Story, error) {
	if len(in.Image.Content) == 0 {
		return nil, models.NewValidationError("Story requires an image")
	}

	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	in.Image.UserID = in.UserID
	result, err := s.media.Upload(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	story := &models.Story{
		ID:              uuid.NewString(),
		AuthorID:        in.UserID,
		AuthorUsername:  author.Username,
		AuthorAvatarURL: author.AvatarURL,
		ImageURL:        result.URL,
		CreatedAt:       now,
		ExpiresAt:       now.Add(StoryTTL),
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		if key := s.media.ObjectKeyFromURL(result.URL); key != "" {
			_ = s.media.Delete(ctx, key)
		}
		return nil, err
	}
	return story, nil
}

// ListStories returns all currently visible stories, newest first.
func (s *StoryService) ListStories(ctx context.Context, limit int) ([]*models.Story, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.storyRepo.ListActive(ctx, limit)
}

// ListUserStories returns the visible stories of one author.
func (s *StoryService) ListUserStories(ctx context.Context, authorID uint) ([]*models.Story, error) {
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}
	return s.storyRepo.ListByAuthor(ctx, authorID)
}
