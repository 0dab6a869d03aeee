package service

import (
	"context"
	"sync"

	"mosaic/internal/events"
	"mosaic/internal/models"
)

type userRepoStub struct {
	getByIDFn               func(ctx context.Context, id uint) (*models.User, error)
	getByUsernameFn         func(ctx context.Context, username string) (*models.User, error)
	getByEmailFn            func(ctx context.Context, email string) (*models.User, error)
	findByUsernameOrEmailFn func(ctx context.Context, username, email string) (*models.User, error)
	createFn                func(ctx context.Context, user *models.User) error
	updateProfilePicFn      func(ctx context.Context, id uint, url string) error
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		getByUsernameFn:         func(context.Context, string) (*models.User, error) { return nil, nil },
		getByEmailFn:            func(context.Context, string) (*models.User, error) { return nil, nil },
		findByUsernameOrEmailFn: func(context.Context, string, string) (*models.User, error) { return nil, nil },
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
		updateProfilePicFn: func(context.Context, uint, string) error { return nil },
	}
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *userRepoStub) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	return s.findByUsernameOrEmailFn(ctx, username, email)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func (s *userRepoStub) UpdateProfilePic(ctx context.Context, id uint, url string) error {
	return s.updateProfilePicFn(ctx, id, url)
}

// followGraphStub is an in-memory edge set.
type followGraphStub struct {
	mu    sync.Mutex
	edges map[[2]uint]bool
	err   error
}

func newFollowGraphStub() *followGraphStub {
	return &followGraphStub{edges: make(map[[2]uint]bool)}
}

func (s *followGraphStub) Toggle(_ context.Context, followerID, followingID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	key := [2]uint{followerID, followingID}
	if s.edges[key] {
		delete(s.edges, key)
		return false, nil
	}
	s.edges[key] = true
	return true, nil
}

func (s *followGraphStub) IsFollowing(_ context.Context, followerID, followingID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edges[[2]uint{followerID, followingID}], nil
}

func (s *followGraphStub) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	users, err := s.Followers(ctx, userID)
	return int64(len(users)), err
}

func (s *followGraphStub) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	users, err := s.Following(ctx, userID)
	return int64(len(users)), err
}

func (s *followGraphStub) Followers(_ context.Context, userID uint) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []models.User{}
	for k := range s.edges {
		if k[1] == userID {
			users = append(users, models.User{ID: k[0]})
		}
	}
	return users, nil
}

func (s *followGraphStub) Following(_ context.Context, userID uint) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []models.User{}
	for k := range s.edges {
		if k[0] == userID {
			users = append(users, models.User{ID: k[1]})
		}
	}
	return users, nil
}

type postRepoStub struct {
	createFn        func(ctx context.Context, post *models.Post) error
	getByIDFn       func(ctx context.Context, id uint) (*models.Post, error)
	listFn          func(ctx context.Context, limit, offset int) ([]*models.Post, error)
	countFn         func(ctx context.Context) (int64, error)
	listByUserFn    func(ctx context.Context, userID uint) ([]*models.Post, error)
	updateCaptionFn func(ctx context.Context, id uint, caption string) error
	deleteFn        func(ctx context.Context, id uint) error
	toggleLikeFn    func(ctx context.Context, postID, userID uint) (bool, error)
	likerIDsFn      func(ctx context.Context, postID uint) ([]uint, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}

func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}

func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}

func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func (s *postRepoStub) ListByUser(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID)
}

func (s *postRepoStub) UpdateCaption(ctx context.Context, id uint, caption string) error {
	return s.updateCaptionFn(ctx, id, caption)
}

func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func (s *postRepoStub) ToggleLike(ctx context.Context, postID, userID uint) (bool, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}

func (s *postRepoStub) LikerIDs(ctx context.Context, postID uint) ([]uint, error) {
	return s.likerIDsFn(ctx, postID)
}

// postOwnedBy returns a getByIDFn serving a single post owned by ownerID.
func postOwnedBy(postID, ownerID uint) func(context.Context, uint) (*models.Post, error) {
	return func(_ context.Context, id uint) (*models.Post, error) {
		if id != postID {
			return nil, models.NewNotFoundError("Post", id)
		}
		return &models.Post{
			ID:           postID,
			UserID:       ownerID,
			Caption:      "original",
			MediaKey:     "posts/a.jpg",
			MediaWebPKey: "posts/a.webp",
		}, nil
	}
}

type commentRepoStub struct {
	mu       sync.Mutex
	comments []models.Comment
	err      error
}

func (s *commentRepoStub) Create(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	c.ID = uint(len(s.comments) + 1)
	s.comments = append(s.comments, *c)
	return nil
}

func (s *commentRepoStub) ListByPost(_ context.Context, postID uint) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mediaStub struct {
	mu      sync.Mutex
	stored  *StoredMedia
	err     error
	removed []string
}

func (s *mediaStub) StorePostMedia(context.Context, uint, []byte) (*StoredMedia, error) {
	return s.stored, s.err
}

func (s *mediaStub) StoreAvatar(context.Context, uint, []byte) (*StoredMedia, error) {
	return s.stored, s.err
}

func (s *mediaStub) Remove(_ context.Context, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if k != "" {
			s.removed = append(s.removed, k)
		}
	}
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
