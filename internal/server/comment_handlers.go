package server

import (
	"lumen/internal/models"
	"lumen/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.Context(), service.CreateCommentInput{
		UserID: currentUserID(c),
		PostID: postID,
		Text:   req.Text,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventCommentCreated, map[string]interface{}{
		"comment": comment,
	})

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /api/posts/:id/comments. Oldest first, so threads
// read top to bottom.
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	comments, err := s.commentService.ListComments(c.Context(), postID, p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}

	return c.JSON(fiber.Map{
		"comments": comments,
		"limit":    p.Limit,
		"offset":   p.Offset,
	})
}
