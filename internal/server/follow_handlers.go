package server

import (
	"lumen/internal/models"

	"github.com/gofiber/fiber/v2"
)

// FollowUser handles POST /api/users/:id/follow. Following someone who is
// already followed is a no-op, not an error.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	followeeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	followerID := currentUserID(c)

	if err := s.followService.Follow(c.Context(), followerID, followeeID); err != nil {
		return respondServiceError(c, err)
	}

	s.publishUserEvent(followeeID, EventFollowerAdded, map[string]interface{}{
		"follower_id": followerID,
	})

	return c.JSON(fiber.Map{"following": true})
}

// UnfollowUser handles DELETE /api/users/:id/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	followeeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.followService.Unfollow(c.Context(), currentUserID(c), followeeID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"following": false})
}

// GetFollowStatus handles GET /api/users/:id/follow
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	followeeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	following, err := s.followService.IsFollowing(c.Context(), currentUserID(c), followeeID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// GetFollowers handles GET /api/users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	users, err := s.followService.Followers(c.Context(), userID, p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}

	return c.JSON(fiber.Map{
		"users":  users,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// GetFollowing handles GET /api/users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	users, err := s.followService.Following(c.Context(), userID, p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}

	return c.JSON(fiber.Map{
		"users":  users,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}
