package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"lumen/internal/cache"
	"lumen/internal/models"
	"lumen/internal/repository"
	"lumen/internal/validation"

	"github.com/redis/go-redis/v9"
)

// MediaUploader is the slice of the media pipeline the post flow needs.
type MediaUploader interface {
	Upload(ctx context.Context, in UploadMediaInput) (*UploadResult, error)
	Delete(ctx context.Context, objectKey string) error
	ObjectKeyFromURL(mediaURL string) string
}

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	media    MediaUploader
	rdb      *redis.Client
}

type CreatePostInput struct {
	UserID         uint
	Text           string
	Image          *UploadMediaInput
	IdempotencyKey string
}

type UpdatePostInput struct {
	UserID uint
	PostID uint
	Text   string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	media MediaUploader,
	rdb *redis.Client,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		media:    media,
		rdb:      rdb,
	}
}

// CreatePost validates and publishes a new post. The author's username and
// avatar are copied onto the post at creation time and never re-synced.
// When an Idempotency-Key is supplied, retries of the same request return the
// originally created post instead of inserting again.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	text := strings.TrimSpace(in.Text)
	if err := validation.ValidatePostText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if text == "" && in.Image == nil {
		return nil, models.NewValidationError("Post must have text or an image")
	}

	claimed, existing, err := s.claimIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	var imageURL string
	if in.Image != nil {
		in.Image.UserID = in.UserID
		result, err := s.media.Upload(ctx, *in.Image)
		if err != nil {
			s.releaseIdempotencyKey(ctx, in.UserID, in.IdempotencyKey, claimed)
			return nil, err
		}
		imageURL = result.URL
	}

	post := &models.Post{
		AuthorID:        in.UserID,
		Text:            text,
		ImageURL:        imageURL,
		AuthorUsername:  author.Username,
		AuthorAvatarURL: author.AvatarURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		if imageURL != "" {
			_ = s.media.Delete(ctx, s.media.ObjectKeyFromURL(imageURL))
		}
		s.releaseIdempotencyKey(ctx, in.UserID, in.IdempotencyKey, claimed)
		return nil, err
	}

	s.recordIdempotentResult(ctx, in.UserID, in.IdempotencyKey, claimed, post.ID)

	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// claimIdempotencyKey reserves the key for this request. It returns the
// previously created post when the key was already completed, and a
// validation error when another request with the same key is still running.
func (s *PostService) claimIdempotencyKey(ctx context.Context, userID uint, key string) (bool, *models.Post, error) {
	if key == "" || s.rdb == nil {
		return false, nil, nil
	}

	redisKey := cache.IdempotencyKey(userID, key)
	ok, err := s.rdb.SetNX(ctx, redisKey, "pending", cache.IdempotencyTTL).Result()
	if err != nil {
		// Redis trouble must not block posting; fall through without idempotency.
		return false, nil, nil
	}
	if ok {
		return true, nil, nil
	}

	val, err := s.rdb.Get(ctx, redisKey).Result()
	if err != nil {
		return false, nil, nil
	}
	if val == "pending" {
		return false, nil, models.NewValidationError("A request with this idempotency key is already in progress")
	}

	postID, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return false, nil, nil
	}
	post, err := s.postRepo.GetByID(ctx, uint(postID), userID)
	if err != nil {
		return false, nil, err
	}
	return false, post, nil
}

func (s *PostService) releaseIdempotencyKey(ctx context.Context, userID uint, key string, claimed bool) {
	if !claimed || s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, cache.IdempotencyKey(userID, key))
}

func (s *PostService) recordIdempotentResult(ctx context.Context, userID uint, key string, claimed bool, postID uint) {
	if !claimed || s.rdb == nil {
		return
	}
	s.rdb.Set(ctx, cache.IdempotencyKey(userID, key), strconv.FormatUint(uint64(postID), 10), cache.IdempotencyTTL)
}

// GetFeed returns the reverse-chronological feed enriched with counts and
// the viewer's reaction state, all computed in a single query.
func (s *PostService) GetFeed(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.postRepo.List(ctx, limit, offset, viewerID)
}

func (s *PostService) GetPost(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, viewerID)
}

func (s *PostService) GetUserPosts(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.postRepo.GetByAuthorID(ctx, authorID, limit, offset, viewerID)
}

// UpdatePost edits a post's text. Only text is mutable; the image is fixed at
// creation. Empty replacement text is rejected before any storage access.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Post text cannot be empty")
	}
	if err := validation.ValidatePostText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	now := time.Now()
	post.Text = text
	post.EditedAt = &now

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes a post and all of its likes and comments. The stored
// image is removed from object storage on a best-effort basis.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only delete your own posts")
	}

	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return nil, err
	}

	if post.ImageURL != "" && s.media != nil {
		if key := s.media.ObjectKeyFromURL(post.ImageURL); key != "" {
			_ = s.media.Delete(ctx, key)
		}
	}

	return post, nil
}

// ToggleLike atomically flips the viewer's reaction and returns the new state
// together with the denormalized like count.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (liked bool, likesCount int64, err error) {
	// Surface NOT_FOUND for dangling post IDs before touching the likes table.
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return false, 0, err
	}
	return s.postRepo.ToggleLike(ctx, userID, postID)
}
