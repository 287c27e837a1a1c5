package server

import (
	"github.com/marinaua13/social-media-api/internal/notifications"
	"github.com/marinaua13/social-media-api/internal/repository"
	"github.com/marinaua13/social-media-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/social/comments
// @Summary Comment on a post
// @Description Owners cannot comment on their own posts.
// @Tags social
// @Accept json
// @Produce json
// @Param request body object{post=int,content=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		Post    uint   `json:"post"`
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Post == 0 {
		return badRequest(c, "post is required")
	}

	userID := currentUserID(c)
	comment, post, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:  userID,
		PostID:  req.Post,
		Content: req.Content,
	})
	if err != nil {
		return s.writeServiceError(c, err)
	}

	s.publishUserEvent(c.UserContext(), post.UserID, notifications.EventPostCommented, map[string]interface{}{
		"post_id":    post.ID,
		"comment_id": comment.ID,
		"user_id":    userID,
	})
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ListComments handles GET /api/social/comments. Without ?post= every comment is returned.
// @Summary List comments
// @Tags social
// @Produce json
// @Param post query int false "Only comments on this post"
// @Param limit query int false "Page size, max 100"
// @Param offset query int false "Rows to skip"
// @Success 200 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := parseOptionalUintQuery(c, "post")
	if err != nil {
		return nil
	}
	page := parsePagination(c)

	comments, err := s.commentService.ListComments(c.UserContext(), repository.CommentFilter{
		PostID: postID,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(comments)
}

// GetComment handles GET /api/social/comments/:id
// @Summary Get a comment
// @Tags social
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/comments/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.GetComment(c.UserContext(), id)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(comment)
}

// UpdateComment handles PUT and PATCH /api/social/comments/:id (author only).
// @Summary Edit a comment
// @Tags social
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body object{content=string} true "New content"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/comments/{id} [put]
// @Router /social/comments/{id} [patch]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return badRequest(c, "Invalid request body")
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    currentUserID(c),
		CommentID: id,
		Content:   req.Content,
	})
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/social/comments/:id (author only).
// @Summary Delete a comment
// @Tags social
// @Produce json
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		CommentID: id,
	}); err != nil {
		return s.writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
