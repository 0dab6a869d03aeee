package service

import (
	"context"

	"mosaic/internal/models"
	"mosaic/internal/repository"
)

// Profile is a user's page as seen by a viewer.
type Profile struct {
	User           models.User    `json:"user"`
	Posts          []*models.Post `json:"posts"`
	Followers      []models.User  `json:"followers"`
	Following      []models.User  `json:"following"`
	FollowersCount int64          `json:"followers_count"`
	FollowingCount int64          `json:"following_count"`
	IsFollowing    bool           `json:"is_following"`
	IsOwner        bool           `json:"is_owner"`
}

type UserService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	posts   repository.PostRepository
	media   MediaStorer
}

func NewUserService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	media MediaStorer,
) *UserService {
	return &UserService{users: users, follows: follows, posts: posts, media: media}
}

// GetProfile assembles username's profile for viewerID.
func (s *UserService) GetProfile(ctx context.Context, username string, viewerID uint) (*Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}

	profile := &Profile{IsOwner: user.ID == viewerID}
	if profile.IsOwner {
		profile.User = *user
		profile.User.Password = ""
	} else {
		profile.User = user.Public()
	}

	if profile.Posts, err = s.posts.ListByUser(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.Followers, err = s.follows.Followers(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.Following, err = s.follows.Following(ctx, user.ID); err != nil {
		return nil, err
	}
	profile.FollowersCount = int64(len(profile.Followers))
	profile.FollowingCount = int64(len(profile.Following))

	if viewerID != 0 && !profile.IsOwner {
		if profile.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, user.ID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// UploadProfilePic stores a new avatar and returns its URL.
func (s *UserService) UploadProfilePic(ctx context.Context, userID uint, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewMediaRequiredError("Profile picture is required")
	}
	stored, err := s.media.StoreAvatar(ctx, userID, content)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateProfilePic(ctx, userID, stored.URL); err != nil {
		s.media.Remove(ctx, stored.Keys()...)
		return "", err
	}
	return stored.URL, nil
}
