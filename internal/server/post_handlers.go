package server

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/repository"
	"github.com/marinaua13/social-media-api/internal/scheduler"
	"github.com/marinaua13/social-media-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

type createPostRequest struct {
	Content  string      `json:"content" form:"content"`
	Hashtags hashtagList `json:"hashtags" form:"hashtags"`
}

// CreatePost handles POST /api/social/posts
// @Summary Create a post
// @Tags social
// @Accept json
// @Produce json
// @Param request body object{content=string,hashtags=string} true "Post"
// @Success 201 {object} PostDetailView
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:   currentUserID(c),
		Content:  req.Content,
		Hashtags: string(req.Hashtags),
	})
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toPostDetailView(post))
}

// ListPosts handles GET /api/social/posts
// @Summary List posts
// @Description Filters combine with AND. Results are newest first.
// @Tags social
// @Produce json
// @Param post query int false "Exact post id"
// @Param date query string false "Creation day, YYYY-MM-DD (UTC)"
// @Param hashtags query string false "Case-insensitive substring of the content"
// @Param filter_by query string false "own or following"
// @Param liked query bool false "Only posts the caller liked"
// @Success 200 {array} PostListView
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	postID, err := parseOptionalUintQuery(c, "post")
	if err != nil {
		return nil
	}

	filter := repository.PostFilter{
		PostID:    postID,
		Hashtags:  strings.TrimSpace(c.Query("hashtags")),
		FilterBy:  c.Query("filter_by"),
		LikedOnly: c.QueryBool("liked", false),
	}
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		day, parseErr := time.Parse(dateLayout, raw)
		if parseErr != nil {
			return badRequest(c, "Invalid date parameter, expected YYYY-MM-DD")
		}
		filter.Date = &day
	}
	page := parsePagination(c)
	filter.Limit, filter.Offset = page.Limit, page.Offset

	posts, err := s.postService.ListPosts(c.UserContext(), filter, currentUserID(c))
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(toPostListViews(posts))
}

// GetPost handles GET /api/social/posts/:id
// @Summary Get a post
// @Tags social
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} PostDetailView
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(toPostDetailView(post))
}

// DeletePost handles DELETE /api/social/posts/:id. Likes and comments go with the post.
// @Summary Delete a post
// @Tags social
// @Produce json
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), id, currentUserID(c)); err != nil {
		return s.writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadPostImage handles POST /api/social/posts/:id/upload-image
// @Summary Attach a picture to a post
// @Description The image is downscaled and stored as WebP.
// @Tags social
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Post ID"
// @Param post_picture formData file true "JPEG, PNG, GIF or WebP image"
// @Success 200 {object} PostDetailView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/posts/{id}/upload-image [post]
func (s *Server) UploadPostImage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	file, err := c.FormFile("post_picture")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	src, err := file.Open()
	if err != nil {
		return badRequest(c, "Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return badRequest(c, "Unable to read uploaded file")
	}

	post, err := s.postService.UploadPostImage(c.UserContext(), service.UploadPostImageInput{
		UserID:      currentUserID(c),
		PostID:      id,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(toPostDetailView(post))
}

// SchedulePostCreation handles POST /api/social/posts/schedule_post_creation
// @Summary Schedule a post
// @Description The post is created by the caller after delay_minutes (default 1).
// @Tags social
// @Accept json
// @Produce json
// @Param request body object{content=string,hashtags=string,delay_minutes=int} true "Scheduled post"
// @Success 200 {object} object{status=string}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /social/posts/schedule_post_creation [post]
func (s *Server) SchedulePostCreation(c *fiber.Ctx) error {
	var req struct {
		Content      string      `json:"content"`
		Hashtags     hashtagList `json:"hashtags"`
		DelayMinutes *int        `json:"delay_minutes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	delay := 1
	if req.DelayMinutes != nil {
		delay = *req.DelayMinutes
	}
	// Bound before converting; a huge count wraps time.Duration.
	switch {
	case delay < 1:
		return s.writeServiceError(c, models.NewValidationError("delay_minutes must be at least 1"))
	case delay > scheduler.MaxDelayMinutes:
		return s.writeServiceError(c, models.NewValidationError(
			fmt.Sprintf("delay_minutes must be at most %d", scheduler.MaxDelayMinutes)))
	}

	_, err := s.scheduler.Schedule(c.UserContext(), service.CreatePostInput{
		UserID:   currentUserID(c),
		Content:  req.Content,
		Hashtags: strings.TrimSpace(string(req.Hashtags)),
	}, time.Duration(delay)*time.Minute)
	if err != nil {
		return s.writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "Post creation scheduled"})
}
