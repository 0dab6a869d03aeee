package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"mosaic/internal/models"
	"mosaic/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is a hand-written data set, usually kept in YAML next to demos.
//
//	users:
//	  - username: alice
//	    email: alice@example.com
//	follows:
//	  - follower: alice
//	    following: bob
//	posts:
//	  - author: bob
//	    caption: Sunset
//	    media_url: https://picsum.photos/seed/sunset/800/800
//	    liked_by: [alice]
//	    comments:
//	      - author: alice
//	        text: Lovely
type Fixture struct {
	Users   []FixtureUser   `yaml:"users"`
	Follows []FixtureFollow `yaml:"follows"`
	Posts   []FixturePost   `yaml:"posts"`
}

type FixtureUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	// Password defaults to DefaultPassword.
	Password   string `yaml:"password"`
	ProfilePic string `yaml:"profile_pic"`
}

type FixtureFollow struct {
	Follower  string `yaml:"follower"`
	Following string `yaml:"following"`
}

type FixturePost struct {
	Author    string           `yaml:"author"`
	Caption   string           `yaml:"caption"`
	MediaURL  string           `yaml:"media_url"`
	MediaType string           `yaml:"media_type"`
	LikedBy   []string         `yaml:"liked_by"`
	Comments  []FixtureComment `yaml:"comments"`
}

type FixtureComment struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

// LoadFixture reads and validates a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path) // #nosec G304: path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML fixture and checks its references.
func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks user fields and that every reference names a listed user.
func (fx *Fixture) Validate() error {
	var errs []error
	known := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		if err := validation.ValidateUsername(u.Username); err != nil {
			errs = append(errs, fmt.Errorf("users[%d]: %w", i, err))
			continue
		}
		if known[u.Username] {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate username %q", i, u.Username))
		}
		known[u.Username] = true
		if u.Email != "" {
			if err := validation.ValidateEmail(validation.NormalizeEmail(u.Email)); err != nil {
				errs = append(errs, fmt.Errorf("users[%d]: %w", i, err))
			}
		}
		if u.Password != "" {
			if err := validation.ValidatePassword(u.Password); err != nil {
				errs = append(errs, fmt.Errorf("users[%d]: %w", i, err))
			}
		}
	}

	ref := func(where, name string) {
		if !known[name] {
			errs = append(errs, fmt.Errorf("%s: unknown user %q", where, name))
		}
	}
	for i, f := range fx.Follows {
		where := fmt.Sprintf("follows[%d]", i)
		ref(where, f.Follower)
		ref(where, f.Following)
		if f.Follower == f.Following {
			errs = append(errs, fmt.Errorf("%s: %q cannot follow themselves", where, f.Follower))
		}
	}
	for i, p := range fx.Posts {
		where := fmt.Sprintf("posts[%d]", i)
		ref(where, p.Author)
		if p.MediaURL == "" {
			errs = append(errs, fmt.Errorf("%s: media_url is required", where))
		}
		for _, liker := range p.LikedBy {
			ref(where+".liked_by", liker)
		}
		for j, c := range p.Comments {
			ref(fmt.Sprintf("%s.comments[%d]", where, j), c.Author)
		}
	}
	return errors.Join(errs...)
}

// ApplyFixture writes fx in one transaction. Posts are dated a minute
// apart in file order, so the last post is the newest.
func (s *Seeder) ApplyFixture(ctx context.Context, fx *Fixture) (Summary, error) {
	var sum Summary
	if err := fx.Validate(); err != nil {
		return sum, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f := s.factory.WithDB(tx)
		sum = Summary{}

		users := make(map[string]*models.User, len(fx.Users))
		for _, fu := range fx.Users {
			password := fu.Password
			if password == "" {
				password = DefaultPassword
			}
			hashed, err := f.hash(password)
			if err != nil {
				return err
			}
			email := validation.NormalizeEmail(fu.Email)
			if email == "" {
				email = fu.Username + "@example.com"
			}
			u, err := f.CreateUser(func(u *models.User) {
				u.Username = fu.Username
				u.Email = email
				u.Password = hashed
				if fu.ProfilePic != "" {
					u.ProfilePic = fu.ProfilePic
				}
			})
			if err != nil {
				return fmt.Errorf("create user %q: %w", fu.Username, err)
			}
			users[fu.Username] = u
		}
		sum.Users = len(users)

		for _, ff := range fx.Follows {
			if err := f.CreateFollow(users[ff.Follower], users[ff.Following]); err != nil {
				return fmt.Errorf("follow %s -> %s: %w", ff.Follower, ff.Following, err)
			}
			sum.Follows++
		}

		start := time.Now().Add(-time.Duration(len(fx.Posts)) * time.Minute)
		for i, fp := range fx.Posts {
			created := start.Add(time.Duration(i) * time.Minute)
			post, err := f.CreatePost(users[fp.Author], func(p *models.Post) {
				p.Caption = fp.Caption
				p.MediaURL = fp.MediaURL
				if fp.MediaType != "" {
					p.MediaType = fp.MediaType
				}
				p.CreatedAt = created
				p.UpdatedAt = created
			})
			if err != nil {
				return fmt.Errorf("create post %d: %w", i, err)
			}
			sum.Posts++

			for _, liker := range fp.LikedBy {
				if err := f.CreateLike(users[liker], post); err != nil {
					return fmt.Errorf("like post %d: %w", i, err)
				}
				sum.Likes++
			}
			for _, fc := range fp.Comments {
				text := fc.Text
				if _, err := f.CreateComment(users[fc.Author], post, func(c *models.Comment) {
					if text != "" {
						c.Text = text
					}
				}); err != nil {
					return fmt.Errorf("comment on post %d: %w", i, err)
				}
				sum.Comments++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}
