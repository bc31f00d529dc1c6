package server

import (
	"lumen/internal/models"
	"lumen/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.GetProfile(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/users/me. Absent fields keep their current
// value; an empty string clears the field.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		DisplayName *string `json:"display_name"`
		Bio         *string `json:"bio"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := currentUserID(c)
	profile, err := s.profileService.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishUserEvent(userID, EventProfileUpdated, map[string]interface{}{
		"profile": profile,
	})

	return c.JSON(profile)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.profileService.GetPublicProfile(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}
