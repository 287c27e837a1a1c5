// Package seed fills a database with fake users, follows, posts, likes, and
// comments for local development and demos.
package seed

import (
	"fmt"
	"log"

	"github.com/marinaua13/social-media-api/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Users           int
	PostsPerUser    int
	FollowsPerUser  int
	LikesPerPost    int
	CommentsPerPost int

	// MaxDays spreads post creation times over the last MaxDays days.
	MaxDays   int
	BatchSize int
	// FastHash hashes the shared password with the minimum bcrypt cost.
	FastHash bool
	// DryRun assigns synthetic IDs instead of writing.
	DryRun   bool
	RandSeed int64
}

// DefaultOptions is the preset used by cmd/seed.
func DefaultOptions() Options {
	return Options{
		Users:           50,
		PostsPerUser:    4,
		FollowsPerUser:  8,
		LikesPerPost:    5,
		CommentsPerPost: 2,
		MaxDays:         90,
		BatchSize:       100,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Follows  int
	Posts    int
	Likes    int
	Comments int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d follows, %d posts, %d likes, %d comments",
		s.Users, s.Follows, s.Posts, s.Likes, s.Comments)
}

// Seeder drives a Factory through a full run.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// ClearAll deletes every seeded row, children first.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		return nil
	}
	log.Println("Clearing existing data...")
	tx := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{
		&models.Comment{},
		&models.Like{},
		&models.Post{},
		&models.Follow{},
		&models.RevokedToken{},
		&models.User{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run creates users, then the follow graph, then posts and their engagement.
// Likes and comments are only ever made by users other than the post owner.
func (s *Seeder) Run() (Summary, error) {
	var sum Summary

	users, err := s.seedUsers()
	sum.Users = len(users)
	if err != nil {
		return sum, err
	}
	if sum.Follows, err = s.seedFollows(users); err != nil {
		return sum, err
	}

	posts, err := s.seedPosts(users)
	sum.Posts = len(posts)
	if err != nil {
		return sum, err
	}
	if sum.Likes, sum.Comments, err = s.seedEngagement(users, posts); err != nil {
		return sum, err
	}

	log.Printf("Seeded %s", sum)
	return sum, nil
}

func (s *Seeder) seedUsers() ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return users, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedFollows(users []*models.User) (int, error) {
	count := 0
	for i, follower := range users {
		for _, j := range s.factory.pick(len(users), s.opts.FollowsPerUser, i) {
			if err := s.factory.CreateFollow(follower, users[j]); err != nil {
				return count, fmt.Errorf("create follow: %w", err)
			}
			count++
		}
	}
	return count, nil
}

func (s *Seeder) seedPosts(users []*models.User) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, len(users)*s.opts.PostsPerUser)
	for _, user := range users {
		for i := 0; i < s.opts.PostsPerUser; i++ {
			posts = append(posts, s.factory.BuildPost(user))
		}
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	return posts, nil
}

func (s *Seeder) seedEngagement(users []*models.User, posts []*models.Post) (likes, comments int, err error) {
	index := make(map[uint]int, len(users))
	for i, u := range users {
		index[u.ID] = i
	}

	for _, post := range posts {
		owner := index[post.UserID]
		for _, j := range s.factory.pick(len(users), s.opts.LikesPerPost, owner) {
			if err := s.factory.CreateLike(users[j], post); err != nil {
				return likes, comments, fmt.Errorf("create like: %w", err)
			}
			likes++
		}
		for c := 0; c < s.opts.CommentsPerPost; c++ {
			others := s.factory.pick(len(users), 1, owner)
			if len(others) == 0 {
				break
			}
			if _, err := s.factory.CreateComment(users[others[0]], post); err != nil {
				return likes, comments, fmt.Errorf("create comment: %w", err)
			}
			comments++
		}
	}
	return likes, comments, nil
}
