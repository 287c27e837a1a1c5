package service

import (
	"context"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/repository"
	"github.com/marinaua13/social-media-api/internal/validation"
)

// Follow list views.
const (
	ViewFollowing = "following"
	ViewFollowers = "followers"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

func (s *FollowService) target(ctx context.Context, email string) (*models.User, error) {
	normalized := validation.NormalizeEmail(email)
	if normalized == "" {
		return nil, models.NewValidationError("Email is required")
	}
	user, err := s.userRepo.GetByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &models.AppError{Code: models.CodeNotFound, Message: "User not found"}
	}
	return user, nil
}

// Follow adds the edge followerID -> user(email). created is false when the edge already existed.
func (s *FollowService) Follow(ctx context.Context, followerID uint, email string) (target *models.User, created bool, err error) {
	target, err = s.target(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if target.ID == followerID {
		return nil, false, models.NewValidationError("You cannot follow yourself")
	}

	already, err := s.followRepo.IsFollowing(ctx, followerID, target.ID)
	if err != nil {
		return nil, false, err
	}
	if already {
		return target, false, nil
	}
	// A concurrent request may insert the edge after the check above.
	created, err = s.followRepo.Follow(ctx, followerID, target.ID)
	if err != nil {
		return nil, false, err
	}
	return target, created, nil
}

// Unfollow removes the edge if present.
func (s *FollowService) Unfollow(ctx context.Context, followerID uint, email string) (*models.User, error) {
	target, err := s.target(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.followRepo.Unfollow(ctx, followerID, target.ID); err != nil {
		return nil, err
	}
	return target, nil
}

// List returns the users userID follows, or the users following userID.
func (s *FollowService) List(ctx context.Context, userID uint, view string) ([]models.User, error) {
	switch view {
	case ViewFollowing:
		return s.followRepo.ListFollowing(ctx, userID)
	case ViewFollowers:
		return s.followRepo.ListFollowers(ctx, userID)
	default:
		return nil, models.NewValidationError("Invalid view_type parameter")
	}
}
