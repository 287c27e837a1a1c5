package service

import (
	"context"
	"errors"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/repository"
)

const (
	msgSelfLike     = "You cannot like your own post."
	msgAlreadyLiked = "You have already liked this post."
	msgNotLikedYet  = "Not liked yet"
)

type LikeService struct {
	likeRepo repository.LikeRepository
	postRepo repository.PostRepository
}

func NewLikeService(likeRepo repository.LikeRepository, postRepo repository.PostRepository) *LikeService {
	return &LikeService{likeRepo: likeRepo, postRepo: postRepo}
}

func (s *LikeService) canLike(ctx context.Context, userID uint, post *models.Post) error {
	if post.UserID == userID {
		return models.NewForbiddenError(msgSelfLike)
	}
	exists, err := s.likeRepo.Exists(ctx, userID, post.ID)
	if err != nil {
		return err
	}
	if exists {
		return models.NewForbiddenError(msgAlreadyLiked)
	}
	return nil
}

// LikePost records userID's like on postID and returns the like and the liked post.
func (s *LikeService) LikePost(ctx context.Context, userID, postID uint) (*models.Like, *models.Post, error) {
	if userID == 0 {
		return nil, nil, models.NewUnauthorizedError("Authentication required")
	}
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return nil, nil, err
	}
	if err := s.canLike(ctx, userID, post); err != nil {
		return nil, nil, err
	}

	like := &models.Like{UserID: userID, PostID: postID}
	if err := s.likeRepo.Create(ctx, like); err != nil {
		// A concurrent request won the race to the unique index.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, models.NewForbiddenError(msgAlreadyLiked)
		}
		return nil, nil, err
	}
	return like, post, nil
}

// UnlikePost removes userID's like on postID. Removing a like that does not exist is a conflict.
func (s *LikeService) UnlikePost(ctx context.Context, userID, postID uint) error {
	removed, err := s.likeRepo.Delete(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewConflictError(msgNotLikedYet)
	}
	return nil
}
