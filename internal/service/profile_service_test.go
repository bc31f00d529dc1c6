package service

import (
	"context"
	"strings"
	"testing"

	"lumen/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProfileService_GetProfile_AppliesDefaults(t *testing.T) {
	t.Parallel()

	userRepo := noopUserRepo()
	userRepo.getProfileFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Username: "bob"}, nil
	}
	svc := NewProfileService(userRepo)

	profile, err := svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAvatarURL, profile.AvatarURL)
	assert.Equal(t, "bob", profile.DisplayName)
}

func TestProfileService_UpdateProfile_MergesFields(t *testing.T) {
	t.Parallel()

	userRepo := noopUserRepo()

	var written map[string]interface{}
	userRepo.updateFieldsFn = func(_ context.Context, _ uint, updates map[string]interface{}) error {
		written = updates
		return nil
	}
	svc := NewProfileService(userRepo)

	// Only bio provided: display name and avatar columns must stay untouched.
	_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		UserID: 1,
		Bio:    strPtr("new bio"),
	})
	require.NoError(t, err)
	require.NotNil(t, written)
	assert.Equal(t, map[string]interface{}{"bio": "new bio"}, written)
}

func TestProfileService_UpdateProfile_NeverWritesCredentialColumns(t *testing.T) {
	t.Parallel()

	// A user snapshot read back through the cache has an empty password hash.
	// The update path must name its columns instead of saving a struct, or
	// that empty hash would overwrite the stored one.
	userRepo := noopUserRepo()

	var written map[string]interface{}
	userRepo.updateFieldsFn = func(_ context.Context, _ uint, updates map[string]interface{}) error {
		written = updates
		return nil
	}
	svc := NewProfileService(userRepo)

	_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		UserID:      1,
		DisplayName: strPtr("Bobby"),
		Bio:         strPtr("hello"),
		AvatarURL:   strPtr("https://cdn.example.com/b2.png"),
	})
	require.NoError(t, err)
	require.NotNil(t, written)
	assert.NotContains(t, written, "password")
	assert.NotContains(t, written, "email")
	assert.NotContains(t, written, "username")
	assert.Len(t, written, 3)
}

func TestProfileService_UpdateProfile_NoFieldsSkipsWrite(t *testing.T) {
	t.Parallel()

	userRepo := noopUserRepo()
	userRepo.updateFieldsFn = func(_ context.Context, _ uint, _ map[string]interface{}) error {
		t.Fatal("empty update must not reach the repository")
		return nil
	}
	svc := NewProfileService(userRepo)

	profile, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
}

func TestProfileService_UpdateProfile_Validation(t *testing.T) {
	t.Parallel()

	svc := NewProfileService(noopUserRepo())
	ctx := context.Background()

	t.Run("display name too long", func(t *testing.T) {
		t.Parallel()
		_, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: 1, DisplayName: strPtr(strings.Repeat("x", 51))})
		assertValidationError(t, err)
	})

	t.Run("bio too long", func(t *testing.T) {
		t.Parallel()
		_, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: 1, Bio: strPtr(strings.Repeat("x", 161))})
		assertValidationError(t, err)
	})
}

func TestProfileService_UpdateProfile_AllowsClearingBio(t *testing.T) {
	t.Parallel()

	userRepo := noopUserRepo()

	var written map[string]interface{}
	userRepo.updateFieldsFn = func(_ context.Context, _ uint, updates map[string]interface{}) error {
		written = updates
		return nil
	}
	svc := NewProfileService(userRepo)

	_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 1, Bio: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"bio": ""}, written)
}
