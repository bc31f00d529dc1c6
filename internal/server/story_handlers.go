package server

import (
	"lumen/internal/models"
	"lumen/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateStory handles POST /api/stories. Multipart form with an "image" file.
func (s *Server) CreateStory(c *fiber.Ctx) error {
	userID := currentUserID(c)

	image, err := readImageFile(c, "image", userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if image == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Story requires an image"))
	}

	story, err := s.storyService.CreateStory(c.Context(), service.CreateStoryInput{
		UserID: userID,
		Image:  *image,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventStoryCreated, map[string]interface{}{
		"story": story,
	})

	return c.Status(fiber.StatusCreated).JSON(story)
}

// GetStories handles GET /api/stories. Only unexpired stories come back,
// newest expiry first.
func (s *Server) GetStories(c *fiber.Ctx) error {
	p := parsePagination(c, 100)

	stories, err := s.storyService.ListStories(c.Context(), p.Limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	if stories == nil {
		stories = []*models.Story{}
	}

	return c.JSON(fiber.Map{"stories": stories})
}

// GetUserStories handles GET /api/users/:id/stories
func (s *Server) GetUserStories(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	stories, err := s.storyService.ListUserStories(c.Context(), authorID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if stories == nil {
		stories = []*models.Story{}
	}

	return c.JSON(fiber.Map{"stories": stories})
}
