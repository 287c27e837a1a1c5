package server

import (
	"fmt"
	"strings"

	"github.com/marinaua13/social-media-api/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// followTargetEmail reads {"email": ...} from the body, falling back to ?email=
// for clients that cannot send a DELETE body.
func followTargetEmail(c *fiber.Ctx) (string, error) {
	var req struct {
		Email string `json:"email"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return "", err
		}
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}
	return strings.TrimSpace(req.Email), nil
}

// Follow handles POST /api/user/follow-unfollow
// @Summary Follow a user
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{email=string} true "User to follow"
// @Success 200 {object} object{detail=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/follow-unfollow [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	email, err := followTargetEmail(c)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}

	userID := currentUserID(c)
	target, created, err := s.followService.Follow(c.UserContext(), userID, email)
	if err != nil {
		return s.writeServiceError(c, err)
	}

	if created {
		s.publishUserEvent(c.UserContext(), target.ID, notifications.EventUserFollowed, map[string]interface{}{
			"follower_id": userID,
		})
	}
	return c.JSON(fiber.Map{"detail": fmt.Sprintf("You are now following %s", target.Email)})
}

// Unfollow handles DELETE /api/user/follow-unfollow
// @Summary Unfollow a user
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{email=string} true "User to unfollow"
// @Success 200 {object} object{detail=string}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/follow-unfollow [delete]
func (s *Server) Unfollow(c *fiber.Ctx) error {
	email, err := followTargetEmail(c)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}

	target, err := s.followService.Unfollow(c.UserContext(), currentUserID(c), email)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"detail": fmt.Sprintf("You have unfollowed %s", target.Email)})
}

// ListFollows handles GET /api/user/follow-unfollow?view_type=following|followers
// @Summary List follows
// @Tags user
// @Produce json
// @Param view_type query string true "following or followers"
// @Success 200 {array} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/follow-unfollow [get]
func (s *Server) ListFollows(c *fiber.Ctx) error {
	users, err := s.followService.List(c.UserContext(), currentUserID(c), c.Query("view_type"))
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(users)
}
