package service

import (
	"context"

	"lumen/internal/models"
	"lumen/internal/repository"
	"lumen/internal/validation"
)

// ProfileService manages the viewer-facing profile document layered over users.
type ProfileService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput carries a partial profile update. Nil fields are left
// untouched; set fields replace the stored value (merge semantics).
type UpdateProfileInput struct {
	UserID      uint
	DisplayName *string
	Bio         *string
	AvatarURL   *string
}

func NewProfileService(userRepo repository.UserRepository) *ProfileService {
	return &ProfileService{userRepo: userRepo}
}

// GetProfile returns the user's profile with post and follow counts. A user
// who has never edited their profile gets presentation defaults instead of
// empty fields.
func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	applyProfileDefaults(user)
	return user, nil
}

// GetPublicProfile returns another user's profile for viewing.
func (s *ProfileService) GetPublicProfile(ctx context.Context, userID uint) (*models.User, error) {
	return s.GetProfile(ctx, userID)
}

// UpdateProfile merges the provided fields into the stored profile and
// returns the updated document with counts. The write names each column
// explicitly; fields the caller did not provide are never touched. A user
// snapshot that went through the cache has no password hash, so profile
// updates must never write a whole struct back.
func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	updates := map[string]interface{}{}

	if in.DisplayName != nil {
		if err := validation.ValidateDisplayName(*in.DisplayName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		updates["display_name"] = *in.DisplayName
	}
	if in.Bio != nil {
		if err := validation.ValidateBio(*in.Bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		updates["bio"] = *in.Bio
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = *in.AvatarURL
	}

	if len(updates) > 0 {
		if err := s.userRepo.UpdateProfileFields(ctx, in.UserID, updates); err != nil {
			return nil, err
		}
	}

	return s.GetProfile(ctx, in.UserID)
}

func applyProfileDefaults(user *models.User) {
	if user.AvatarURL == "" {
		user.AvatarURL = models.DefaultAvatarURL
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
}
