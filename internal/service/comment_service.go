package service

import (
	"context"
	"strings"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/repository"
)

const (
	maxCommentLen    = 10000
	msgSelfComment   = "You cannot comment on your own post."
	msgCommentAuthor = "You can only change your own comments"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	UserID  uint
	PostID  uint
	Content string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

func validateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > maxCommentLen {
		return models.NewValidationError("Comment too long (max 10000 characters)")
	}
	return nil
}

func canComment(userID uint, post *models.Post) error {
	if post.UserID == userID {
		return models.NewForbiddenError(msgSelfComment)
	}
	return nil
}

// CreateComment adds a comment and returns it with the commented post.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, *models.Post, error) {
	if in.UserID == 0 {
		return nil, nil, models.NewUnauthorizedError("Authentication required")
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID, 0)
	if err != nil {
		return nil, nil, err
	}
	if err := canComment(in.UserID, post); err != nil {
		return nil, nil, err
	}
	if err := validateCommentContent(in.Content); err != nil {
		return nil, nil, err
	}

	comment := &models.Comment{
		Content: in.Content,
		UserID:  in.UserID,
		PostID:  in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, nil, err
	}
	return comment, post, nil
}

func (s *CommentService) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	return s.commentRepo.GetByID(ctx, id)
}

// ListComments returns every comment, or only the post's when filter.PostID is set.
func (s *CommentService) ListComments(ctx context.Context, filter repository.CommentFilter) ([]*models.Comment, error) {
	return s.commentRepo.List(ctx, filter)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError(msgCommentAuthor)
	}
	if err := validateCommentContent(in.Content); err != nil {
		return nil, err
	}

	comment.Content = in.Content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return err
	}
	if comment.UserID != in.UserID {
		return models.NewForbiddenError(msgCommentAuthor)
	}
	return s.commentRepo.Delete(ctx, in.CommentID)
}
