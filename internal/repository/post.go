package repository

import (
	"context"
	"errors"
	"time"

	"github.com/marinaua13/social-media-api/internal/cache"
	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Values accepted by PostFilter.FilterBy.
const (
	FilterByOwn       = "own"
	FilterByFollowing = "following"
)

// PostFilter holds the AND-composed filters of a post listing. Zero values mean "no filter".
type PostFilter struct {
	PostID *uint
	// Date matches posts created on that UTC calendar day.
	Date      *time.Time
	Hashtags  string
	FilterBy  string
	LikedOnly bool
	Limit     int
	Offset    int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter, viewerID uint) ([]*models.Post, error)
	UpdatePicture(ctx context.Context, id uint, url string) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "user_id": post.UserID})
	return nil
}

// GetByID returns the post with its counts. The row and counts are cached; liked is
// resolved per viewer on every call.
func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "posts", "GetByID")
	defer span.End()

	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := r.applyPostDetails(r.db.WithContext(ctx), 0).First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	post.Liked = false
	if viewerID != 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Like{}).
			Where("user_id = ? AND post_id = ?", viewerID, id).
			Count(&count).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		post.Liked = count > 0
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, viewerID uint) ([]*models.Post, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "posts", "List")
	defer span.End()
	span.SetAttributes(
		attribute.String("filter.by", filter.FilterBy),
		attribute.Bool("filter.liked", filter.LikedOnly),
	)

	q := r.applyPostDetails(r.db.WithContext(ctx), viewerID)

	if filter.PostID != nil {
		q = q.Where("posts.id = ?", *filter.PostID)
	}
	if filter.Date != nil {
		d := filter.Date.UTC()
		dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("posts.created_at >= ? AND posts.created_at < ?", dayStart, dayStart.Add(24*time.Hour))
	}
	if filter.Hashtags != "" {
		q = q.Where(`LOWER(posts.content) LIKE ? ESCAPE '\'`, containsPattern(filter.Hashtags))
	}
	switch filter.FilterBy {
	case FilterByOwn:
		q = q.Where("posts.user_id = ?", viewerID)
	case FilterByFollowing:
		q = q.Where("posts.user_id IN (?)",
			r.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", viewerID))
	}
	if filter.LikedOnly {
		q = q.Where("posts.id IN (?)",
			r.db.Model(&models.Like{}).Select("post_id").Where("user_id = ?", viewerID))
	}

	q = q.Order("posts.created_at DESC").Order("posts.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var posts []*models.Post
	if err := q.Find(&posts).Error; err != nil {
		span.RecordError(err)
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// applyPostDetails adds subqueries to fetch counts and liked status in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) as comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) as likes_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) as liked", viewerID)
	}

	return db.Select(selectQuery + ", false as liked")
}

func (r *postRepository) UpdatePicture(ctx context.Context, id uint, url string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("post_picture", url)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// Delete removes the post with its likes and comments in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
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
	cache.InvalidatePost(ctx, id)
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}
