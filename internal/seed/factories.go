package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/marinaua13/social-media-api/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the Seeder and by tests.
type Factory struct {
	db   *gorm.DB
	opts Options

	fake *gofakeit.Faker
	rng  *rand.Rand

	passwordHash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:   db,
		opts: opts,
		fake: gofakeit.New(seed),
		//nolint:gosec // weak random numbers are fine for fake data
		rng:    rand.New(rand.NewSource(seed)),
		nextID: 1000,
	}
}

func (f *Factory) hashedPassword() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", err
	}
	f.passwordHash = string(hash)
	return f.passwordHash, nil
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.hashedPassword()
	if err != nil {
		return nil, err
	}
	username := strings.ToLower(f.fake.Username()) + fmt.Sprintf("%d", f.fake.Number(100, 999))
	user := &models.User{
		Email:    fmt.Sprintf("%s@example.com", username),
		Username: username,
		Bio:      f.fake.Sentence(10),
		Password: hash,
	}
	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Email)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post for user without persisting it. Creation times
// are spread over the last opts.MaxDays days.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute

	tags := f.hashtags(f.rng.Intn(4))
	content := f.fake.Paragraph(1, f.rng.Intn(3)+1, 8, " ")
	if tags != "" {
		content += " " + tags
	}

	post := &models.Post{
		UserID:    user.ID,
		Content:   content,
		Hashtags:  tags,
		CreatedAt: time.Now().UTC().Add(-back),
	}
	post.UpdatedAt = post.CreatedAt
	for _, override := range overrides {
		override(post)
	}
	return post
}

func (f *Factory) hashtags(n int) string {
	tags := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(tags) < n {
		tag := "#" + strings.ToLower(f.fake.Word())
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	joined := strings.Join(tags, " ")
	if len(joined) > models.MaxHashtagsLength {
		joined = joined[:models.MaxHashtagsLength]
	}
	return joined
}

// CreatePost constructs and persists a sample post for user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)
	if err := f.CreatePostsBatch([]*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in batches of opts.BatchSize.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	return f.db.CreateInBatches(posts, f.batchSize()).Error
}

// CreateComment persists a comment by user on post. Authors never comment on their own post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	if user.ID == post.UserID {
		return nil, fmt.Errorf("user %d owns post %d", user.ID, post.ID)
	}
	comment := &models.Comment{
		Content: f.fake.Sentence(8),
		UserID:  user.ID,
		PostID:  post.ID,
	}
	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on post. Owners never like their own post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	if user.ID == post.UserID {
		return fmt.Errorf("user %d owns post %d", user.ID, post.ID)
	}
	if f.opts.DryRun {
		return nil
	}
	return f.db.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
}

// CreateFollow persists a follow edge from follower to following.
func (f *Factory) CreateFollow(follower, following *models.User) error {
	if follower.ID == following.ID {
		return fmt.Errorf("user %d cannot follow themselves", follower.ID)
	}
	if f.opts.DryRun {
		return nil
	}
	return f.db.Create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID}).Error
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize > 0 {
		return f.opts.BatchSize
	}
	return 100
}

// pick returns up to n distinct indexes in [0, size) other than skip.
func (f *Factory) pick(size, n, skip int) []int {
	perm := f.rng.Perm(size)
	out := make([]int, 0, n)
	for _, i := range perm {
		if len(out) == n {
			break
		}
		if i == skip {
			continue
		}
		out = append(out, i)
	}
	return out
}
