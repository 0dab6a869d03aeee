package seed

import (
	"context"
	"fmt"

	"mosaic/internal/middleware"
	"mosaic/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	// Seed makes generation deterministic. Zero draws a random seed.
	Seed int64
	// BcryptCost defaults to bcrypt.DefaultCost. Tests use bcrypt.MinCost.
	BcryptCost int
	// MaxDays bounds how far back generated posts are dated.
	MaxDays   int
	BatchSize int
	// FollowRatio is the chance that one user follows another.
	FollowRatio float64
	// LikeRatio is the chance that a user likes a given post.
	LikeRatio float64
	// MaxComments per post.
	MaxComments int
}

func (o Options) withDefaults() Options {
	if o.FollowRatio <= 0 {
		o.FollowRatio = 0.3
	}
	if o.LikeRatio <= 0 {
		o.LikeRatio = 0.2
	}
	if o.MaxComments < 0 {
		o.MaxComments = 0
	} else if o.MaxComments == 0 {
		o.MaxComments = 3
	}
	return o
}

// Summary counts what a seeding run wrote.
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

// Seeder writes generated or fixture data in a single transaction.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	opts = opts.withDefaults()
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// SeedSocialGraph creates users, a random follow graph among them,
// postsPerUser posts each, and likes and comments on those posts.
func (s *Seeder) SeedSocialGraph(ctx context.Context, users, postsPerUser int) (Summary, error) {
	var sum Summary
	if users <= 0 {
		return sum, fmt.Errorf("users must be positive, got %d", users)
	}
	if postsPerUser < 0 {
		return sum, fmt.Errorf("posts per user must not be negative, got %d", postsPerUser)
	}

	middleware.Logger.InfoContext(ctx, "seeding social graph", "users", users, "posts_per_user", postsPerUser)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f := s.factory.WithDB(tx)
		sum = Summary{}

		created := make([]*models.User, 0, users)
		for i := 0; i < users; i++ {
			u, err := f.CreateUser()
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			created = append(created, u)
		}
		sum.Users = len(created)

		for _, follower := range created {
			for _, target := range created {
				if follower.ID == target.ID || !f.Pick(s.opts.FollowRatio) {
					continue
				}
				if err := f.CreateFollow(follower, target); err != nil {
					return fmt.Errorf("create follow: %w", err)
				}
				sum.Follows++
			}
		}

		posts := make([]*models.Post, 0, users*postsPerUser)
		for _, u := range created {
			for i := 0; i < postsPerUser; i++ {
				posts = append(posts, f.BuildPost(u))
			}
		}
		if err := f.CreatePostsBatch(posts); err != nil {
			return fmt.Errorf("create posts: %w", err)
		}
		sum.Posts = len(posts)

		for _, p := range posts {
			for _, u := range created {
				if !f.Pick(s.opts.LikeRatio) {
					continue
				}
				if err := f.CreateLike(u, p); err != nil {
					return fmt.Errorf("create like: %w", err)
				}
				sum.Likes++
			}
			for n := f.Intn(s.opts.MaxComments + 1); n > 0; n-- {
				author := created[f.Intn(len(created))]
				if _, err := f.CreateComment(author, p); err != nil {
					return fmt.Errorf("create comment: %w", err)
				}
				sum.Comments++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	middleware.Logger.InfoContext(ctx, "seeding complete", "summary", sum.String())
	return sum, nil
}

// Clean removes all social data. Migrations bookkeeping is left alone.
func Clean(ctx context.Context, db *gorm.DB) error {
	middleware.Logger.InfoContext(ctx, "clearing existing data")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.Comment{}, &models.Like{}, &models.Follow{}, &models.Post{}, &models.User{}} {
			if err := all.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
