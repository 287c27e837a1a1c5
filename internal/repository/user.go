// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"slices"

	"github.com/marinaua13/social-media-api/internal/cache"
	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/observability"

	"gorm.io/gorm"
)

// UserFilter holds the optional case-insensitive substring filters of a user search.
type UserFilter struct {
	Username string
	Email    string
	Bio      string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, filter UserFilter) ([]models.User, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns (nil, nil) when no user has that email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"user_id": user.ID})
	return nil
}

// Update writes the profile columns. The password column is written only when
// user.Password is set, since cached users carry no hash.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	cols := []string{"email", "username", "bio", "profile_picture", "updated_at"}
	if user.Password != "" {
		cols = append(cols, "password")
	}
	if err := r.db.WithContext(ctx).Model(user).Select(cols).Updates(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// Delete removes the user and everything hanging off them in one transaction:
// their posts (with those posts' likes and comments), their own likes and comments,
// both directions of their follow edges, and their revoked-token rows.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	var postIDs, touched []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("user_id = ?", id).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if len(postIDs) > 0 {
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Like{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error; err != nil {
				return err
			}
		}
		// Counts on other users' posts change too.
		var liked, commented []uint
		if err := tx.Model(&models.Like{}).Where("user_id = ?", id).Distinct().Pluck("post_id", &liked).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("user_id = ?", id).Distinct().Pluck("post_id", &commented).Error; err != nil {
			return err
		}
		touched = append(liked, commented...)

		if err := tx.Where("user_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR following_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RevokedToken{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return err
		}
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, id)
	slices.Sort(touched)
	for _, postID := range slices.Concat(postIDs, slices.Compact(touched)) {
		cache.InvalidatePost(ctx, postID)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"user_id": id, "posts": len(postIDs)})
	return nil
}

func (r *userRepository) Search(ctx context.Context, filter UserFilter) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Username != "" {
		q = q.Where(`LOWER(username) LIKE ? ESCAPE '\'`, containsPattern(filter.Username))
	}
	if filter.Email != "" {
		q = q.Where(`LOWER(email) LIKE ? ESCAPE '\'`, containsPattern(filter.Email))
	}
	if filter.Bio != "" {
		q = q.Where(`LOWER(bio) LIKE ? ESCAPE '\'`, containsPattern(filter.Bio))
	}

	var users []models.User
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
