package service

import (
	"context"

	"lumen/internal/models"
	"lumen/internal/repository"
)

// FollowService manages the directed follow graph between users.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// Follow creates a follow edge. Repeating an existing follow is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}
	return s.followRepo.Follow(ctx, followerID, followeeID)
}

// Unfollow removes a follow edge. Removing a missing edge is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.NewValidationError("You cannot unfollow yourself")
	}
	return s.followRepo.Unfollow(ctx, followerID, followeeID)
}

func (s *FollowService) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, userID, limit, offset)
}

func (s *FollowService) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, userID, limit, offset)
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.followRepo.IsFollowing(ctx, followerID, followeeID)
}
