package service

import (
	"context"
	"errors"
	"strings"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/repository"
	"github.com/marinaua13/social-media-api/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const maxBioLen = 500

type UserService struct {
	userRepo repository.UserRepository
}

type CreateUserInput struct {
	Email    string
	Password string
	Username string
	Bio      string
}

// UpdateProfileInput carries a partial update; nil fields are left unchanged.
type UpdateProfileInput struct {
	UserID   uint
	Email    *string
	Password *string
	Username *string
	Bio      *string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	username := strings.TrimSpace(in.Username)
	if username != "" {
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if len(in.Bio) > maxBioLen {
		return nil, models.NewValidationError("Bio too long (max 500 characters)")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:    email,
		Username: username,
		Bio:      in.Bio,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewValidationError("user with this email already exists")
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks the credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := models.NewUnauthorizedError("No active account found with the given credentials")

	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized := validation.NormalizeEmail(email)
	user, err := s.userRepo.GetByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", normalized)
	}
	return user, nil
}

func (s *UserService) SearchUsers(ctx context.Context, filter repository.UserFilter) ([]models.User, error) {
	filter.Username = strings.TrimSpace(filter.Username)
	filter.Email = strings.TrimSpace(filter.Email)
	filter.Bio = strings.TrimSpace(filter.Bio)
	return s.userRepo.Search(ctx, filter)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := validation.NormalizeEmail(*in.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = email
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username != "" {
			if err := validation.ValidateUsername(username); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
		}
		user.Username = username
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = *in.Bio
	}
	if in.Password != nil {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.Password = string(hashed)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewValidationError("user with this email already exists")
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfileByEmail applies in to the profile at email, which must be the caller's own.
func (s *UserService) UpdateProfileByEmail(ctx context.Context, callerID uint, email string, in UpdateProfileInput) (*models.User, error) {
	target, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if target.ID != callerID {
		return nil, models.NewForbiddenError("You can only modify your own profile")
	}
	in.UserID = target.ID
	return s.UpdateProfile(ctx, in)
}

// DeleteUserByEmail removes the caller's own account along with all of its content.
func (s *UserService) DeleteUserByEmail(ctx context.Context, callerID uint, email string) error {
	target, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if target.ID != callerID {
		return models.NewForbiddenError("You can only delete your own profile")
	}
	return s.userRepo.Delete(ctx, target.ID)
}
