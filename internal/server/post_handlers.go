package server

import (
	"io"
	"mime/multipart"
	"strings"

	"lumen/internal/models"
	"lumen/internal/service"

	"github.com/gofiber/fiber/v2"
)

// readImageFile loads an uploaded file part into an UploadMediaInput.
// Returns nil when the part is absent.
func readImageFile(c *fiber.Ctx, field string, userID uint) (*service.UploadMediaInput, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		// fiber returns an error when the part is missing; treat as "no image"
		return nil, nil
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, models.NewValidationError("Unreadable image upload")
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewValidationError("Unreadable image upload")
	}

	return &service.UploadMediaInput{
		UserID:      userID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// CreatePost handles POST /api/posts. Accepts multipart form data with a
// "text" field and an optional "image" file, or a plain JSON body for
// text-only posts. An X-Idempotency-Key header makes retries safe.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := currentUserID(c)

	in := service.CreatePostInput{
		UserID:         userID,
		IdempotencyKey: c.Get("X-Idempotency-Key"),
	}

	contentType := c.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		in.Text = c.FormValue("text")
		image, err := readImageFile(c, "image", userID)
		if err != nil {
			return respondServiceError(c, err)
		}
		in.Image = image
	} else {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Text = req.Text
	}

	post, err := s.postService.CreatePost(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventPostCreated, map[string]interface{}{
		"post": post,
	})

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetFeed handles GET /api/posts. Newest posts first. Works without a token;
// liked_by_viewer is populated when a valid token is attached.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	viewerID, _ := s.optionalUserID(c)

	posts, err := s.postService.GetFeed(c.Context(), p.Limit, p.Offset, viewerID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return c.JSON(fiber.Map{
		"posts":  posts,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	post, err := s.postService.GetPost(c.Context(), id, viewerID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)
	viewerID, _ := s.optionalUserID(c)

	posts, err := s.postService.GetUserPosts(c.Context(), authorID, p.Limit, p.Offset, viewerID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return c.JSON(fiber.Map{
		"posts":  posts,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// UpdatePost handles PUT /api/posts/:id. Only the text can change; the image
// is immutable once set.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
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

	post, err := s.postService.UpdatePost(c.Context(), service.UpdatePostInput{
		UserID: currentUserID(c),
		PostID: id,
		Text:   req.Text,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventPostUpdated, map[string]interface{}{
		"post": post,
	})

	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.DeletePost(c.Context(), service.DeletePostInput{
		UserID: currentUserID(c),
		PostID: id,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventPostDeleted, map[string]interface{}{
		"post_id":   post.ID,
		"author_id": post.AuthorID,
	})

	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// ToggleLike handles POST /api/posts/:id/like. The same endpoint likes and
// unlikes; the response reports the resulting state.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	liked, likesCount, err := s.postService.ToggleLike(c.Context(), userID, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventPostReactionUpdated, map[string]interface{}{
		"post_id":     id,
		"likes_count": likesCount,
	})

	return c.JSON(fiber.Map{
		"post_id":     id,
		"liked":       liked,
		"likes_count": likesCount,
	})
}
