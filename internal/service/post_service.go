package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/repository"
)

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	images   *ImageService
}

type CreatePostInput struct {
	UserID   uint
	Content  string
	Hashtags string
}

type UploadPostImageInput struct {
	UserID      uint
	PostID      uint
	ContentType string
	Content     []byte
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, images *ImageService) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		images:   images,
	}
}

// ValidateCreatePost checks a post before it is created or scheduled.
func ValidateCreatePost(in CreatePostInput) error {
	if in.UserID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return models.NewValidationError("Content is required")
	}
	if len(in.Hashtags) > models.MaxHashtagsLength {
		return models.NewValidationError(fmt.Sprintf("Hashtags too long (max %d characters)", models.MaxHashtagsLength))
	}
	return nil
}

// CreatePost stores a new post owned by in.UserID. The owner must exist.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	in.Hashtags = strings.TrimSpace(in.Hashtags)
	if err := ValidateCreatePost(in); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:   in.UserID,
		Content:  in.Content,
		Hashtags: in.Hashtags,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, viewerID)
}

func (s *PostService) ListPosts(ctx context.Context, filter repository.PostFilter, viewerID uint) ([]*models.Post, error) {
	return s.postRepo.List(ctx, filter, viewerID)
}

// DeletePost removes a post and its likes and comments. Only the owner may delete.
func (s *PostService) DeletePost(ctx context.Context, id, userID uint) error {
	post, err := s.postRepo.GetByID(ctx, id, 0)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}
	if post.PostPicture != "" && s.images != nil {
		s.images.Remove(post.PostPicture)
	}
	return nil
}

// UploadPostImage replaces the picture of a post owned by in.UserID.
func (s *PostService) UploadPostImage(ctx context.Context, in UploadPostImageInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, 0)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only change your own posts")
	}
	owner, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Store(ctx, StoreImageInput{
		Folder:      FolderPostPictures,
		NamePrefix:  owner.Username,
		ContentType: in.ContentType,
		Content:     in.Content,
	})
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.UpdatePicture(ctx, post.ID, url); err != nil {
		s.images.Remove(url)
		return nil, err
	}
	if post.PostPicture != "" {
		s.images.Remove(post.PostPicture)
	}

	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}
