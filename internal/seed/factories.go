// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"strings"
	"time"

	"mosaic/internal/models"
	"mosaic/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the plaintext password of every generated user.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	hashes map[string]string
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// opts.Seed draws a random seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(opts.Seed),
		hashes: make(map[string]string),
	}
}

// WithDB returns a factory sharing f's generator and password cache but
// writing through db, typically a transaction.
func (f *Factory) WithDB(db *gorm.DB) *Factory {
	clone := *f
	clone.db = db
	return &clone
}

func (f *Factory) hash(password string) (string, error) {
	if h, ok := f.hashes[password]; ok {
		return h, nil
	}
	cost := f.opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	f.hashes[password] = string(h)
	return string(h), nil
}

func (f *Factory) username() string {
	base := strings.ToLower(f.faker.Username())
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base)
	if len(base) > validation.MaxUsernameLength-4 {
		base = base[:validation.MaxUsernameLength-4]
	}
	return fmt.Sprintf("%s%d", base, f.faker.Number(1000, 9999))
}

// BuildUser constructs a user with the default password without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := f.hash(DefaultPassword)
	if err != nil {
		return nil, err
	}
	username := f.username()
	user := &models.User{
		Username:   username,
		Email:      username + "@example.com",
		Password:   hashed,
		ProfilePic: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs an image post for user with a placeholder media URL
// and a created_at spread over the last MaxDays days.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60-1)) * time.Minute

	post := &models.Post{
		Caption:   f.faker.Sentence(f.faker.Number(3, 12)),
		MediaURL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()),
		MediaType: "image/jpeg",
		UserID:    user.ID,
		CreatedAt: time.Now().Add(-back),
	}
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample `models.Post` for the given user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)
	if err := f.db.Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in batches of BatchSize.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	size := f.opts.BatchSize
	if size <= 0 {
		size = 100
	}
	return f.db.Omit(clause.Associations).CreateInBatches(posts, size).Error
}

// CreateComment constructs and persists a sample `models.Comment` on the
// provided post authored by the provided user.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Text:   f.faker.Sentence(f.faker.Number(2, 10)),
		UserID: user.ID,
		PostID: post.ID,
	}
	if post.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	} else {
		// Comments land between the post and now.
		window := time.Since(post.CreatedAt)
		comment.CreatedAt = post.CreatedAt.Add(time.Duration(f.faker.Float64Range(0, 1) * float64(window)))
	}

	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from `user` on `post`. An existing like is kept.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	like := &models.Like{
		UserID: user.ID,
		PostID: post.ID,
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error
}

// CreateFollow persists the edge follower -> following. An existing edge is kept.
func (f *Factory) CreateFollow(follower, following *models.User) error {
	if follower.ID == following.ID {
		return fmt.Errorf("user %d cannot follow themselves", follower.ID)
	}
	follow := &models.Follow{
		FollowerID:  follower.ID,
		FollowingID: following.ID,
	}
	return f.db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(follow).Error
}

// Pick reports true with probability p.
func (f *Factory) Pick(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}

// Intn returns a number in [0, n).
func (f *Factory) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}
