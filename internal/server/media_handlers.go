package server

import (
	"lumen/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/media. Multipart form with a "file" part.
// Returns the public URLs of both stored renditions.
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	userID := currentUserID(c)

	input, err := readImageFile(c, "file", userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if input == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A file upload is required"))
	}

	result, err := s.mediaService.Upload(c.Context(), *input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}
