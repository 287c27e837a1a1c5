package server

import (
	"github.com/marinaua13/social-media-api/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// LikePost handles POST /api/social/likes
// @Summary Like a post
// @Description Owners cannot like their own posts and a post can be liked once per user.
// @Tags social
// @Accept json
// @Produce json
// @Param request body object{post=int} true "Post to like"
// @Success 201 {object} models.Like
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/likes [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	var req struct {
		Post uint `json:"post"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Post == 0 {
		return badRequest(c, "post is required")
	}

	userID := currentUserID(c)
	like, post, err := s.likeService.LikePost(c.UserContext(), userID, req.Post)
	if err != nil {
		return s.writeServiceError(c, err)
	}

	s.publishUserEvent(c.UserContext(), post.UserID, notifications.EventPostLiked, map[string]interface{}{
		"post_id": post.ID,
		"user_id": userID,
	})
	return c.Status(fiber.StatusCreated).JSON(like)
}

// UnlikePost handles DELETE /api/social/likes/:post_id
// @Summary Remove a like
// @Tags social
// @Param post_id path int true "Post ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse "Not liked yet"
// @Security BearerAuth
// @Router /social/likes/{post_id} [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	if err := s.likeService.UnlikePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
