package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mosaic/internal/events"
	"mosaic/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// likeStoreStub keeps likes per post, most recent first.
type likeStoreStub struct {
	mu    sync.Mutex
	likes map[uint][]uint
}

func newLikePostRepo(postID, ownerID uint) (*postRepoStub, *likeStoreStub) {
	store := &likeStoreStub{likes: make(map[uint][]uint)}
	repo := &postRepoStub{
		getByIDFn: postOwnedBy(postID, ownerID),
		toggleLikeFn: func(_ context.Context, pid, uid uint) (bool, error) {
			store.mu.Lock()
			defer store.mu.Unlock()
			current := store.likes[pid]
			for i, id := range current {
				if id == uid {
					store.likes[pid] = append(current[:i:i], current[i+1:]...)
					return false, nil
				}
			}
			store.likes[pid] = append([]uint{uid}, current...)
			return true, nil
		},
		likerIDsFn: func(_ context.Context, pid uint) ([]uint, error) {
			store.mu.Lock()
			defer store.mu.Unlock()
			return append([]uint{}, store.likes[pid]...), nil
		},
	}
	return repo, store
}

func TestSocialGraphService_ToggleFollow(t *testing.T) {
	t.Parallel()

	t.Run("follow then unfollow is symmetric and reversible", func(t *testing.T) {
		t.Parallel()
		graph := newFollowGraphStub()
		pub := &recordingPublisher{}
		svc := NewSocialGraphService(noopUserRepo(), graph, &postRepoStub{}, pub)
		ctx := context.Background()

		res, err := svc.ToggleFollow(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, &FollowResult{IsFollowing: true, FollowersCount: 1, FollowingCount: 0}, res)

		aFollowing, _ := graph.Following(ctx, 1)
		bFollowers, _ := graph.Followers(ctx, 2)
		assert.Equal(t, []models.User{{ID: 2}}, aFollowing)
		assert.Equal(t, []models.User{{ID: 1}}, bFollowers)

		res, err = svc.ToggleFollow(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, res.IsFollowing)
		assert.Zero(t, res.FollowersCount)

		aFollowing, _ = graph.Following(ctx, 1)
		bFollowers, _ = graph.Followers(ctx, 2)
		assert.Empty(t, aFollowing)
		assert.Empty(t, bFollowers)

		require.Len(t, pub.events, 1, "only the follow emits")
		e := pub.events[0]
		assert.Equal(t, events.TypeUserFollowed, e.Type)
		assert.Equal(t, uint(2), e.RecipientID)
		assert.Equal(t, uint(1), e.ActorID)
	})

	t.Run("counts are the target's", func(t *testing.T) {
		t.Parallel()
		graph := newFollowGraphStub()
		graph.edges[[2]uint{2, 3}] = true
		graph.edges[[2]uint{4, 2}] = true
		svc := NewSocialGraphService(noopUserRepo(), graph, &postRepoStub{}, events.NopPublisher{})

		res, err := svc.ToggleFollow(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.FollowersCount)
		assert.Equal(t, int64(1), res.FollowingCount)
	})

	t.Run("self follow", func(t *testing.T) {
		t.Parallel()
		graph := newFollowGraphStub()
		svc := NewSocialGraphService(noopUserRepo(), graph, &postRepoStub{}, nil)

		_, err := svc.ToggleFollow(context.Background(), 3, 3)
		assert.Equal(t, models.CodeSelfFollow, models.ErrorCode(err))
		assert.Empty(t, graph.edges)
	})

	t.Run("missing target", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		graph := newFollowGraphStub()
		svc := NewSocialGraphService(repo, graph, &postRepoStub{}, nil)

		_, err := svc.ToggleFollow(context.Background(), 1, 99)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
		assert.Empty(t, graph.edges)
	})

	t.Run("toggle failure propagates", func(t *testing.T) {
		t.Parallel()
		graph := newFollowGraphStub()
		graph.err = errors.New("tx aborted")
		svc := NewSocialGraphService(noopUserRepo(), graph, &postRepoStub{}, nil)

		_, err := svc.ToggleFollow(context.Background(), 1, 2)
		assert.ErrorIs(t, err, graph.err)
	})
}

func TestSocialGraphService_ToggleLike(t *testing.T) {
	t.Parallel()

	t.Run("double toggle restores the liker list", func(t *testing.T) {
		t.Parallel()
		posts, store := newLikePostRepo(10, 1)
		store.likes[10] = []uint{3}
		pub := &recordingPublisher{}
		svc := NewSocialGraphService(noopUserRepo(), newFollowGraphStub(), posts, pub)
		ctx := context.Background()

		likes, err := svc.ToggleLike(ctx, 10, 2)
		require.NoError(t, err)
		assert.Equal(t, []uint{2, 3}, likes, "newest liker first")

		likes, err = svc.ToggleLike(ctx, 10, 2)
		require.NoError(t, err)
		assert.Equal(t, []uint{3}, likes)

		assert.Equal(t, []string{events.TypePostLiked}, pub.types())
		assert.Equal(t, uint(1), pub.events[0].RecipientID)
	})

	t.Run("owner liking own post does not notify", func(t *testing.T) {
		t.Parallel()
		posts, _ := newLikePostRepo(10, 1)
		pub := &recordingPublisher{}
		svc := NewSocialGraphService(noopUserRepo(), newFollowGraphStub(), posts, pub)

		likes, err := svc.ToggleLike(context.Background(), 10, 1)
		require.NoError(t, err)
		assert.Equal(t, []uint{1}, likes)
		assert.Empty(t, pub.events)
	})

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		posts, store := newLikePostRepo(10, 1)
		svc := NewSocialGraphService(noopUserRepo(), newFollowGraphStub(), posts, nil)

		_, err := svc.ToggleLike(context.Background(), 11, 2)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
		assert.Empty(t, store.likes)
	})

	t.Run("publisher failure does not fail the toggle", func(t *testing.T) {
		t.Parallel()
		posts, _ := newLikePostRepo(10, 1)
		failing := events.PublisherFunc(func(context.Context, events.Event) error { return errors.New("broker down") })
		svc := NewSocialGraphService(noopUserRepo(), newFollowGraphStub(), posts, failing)

		likes, err := svc.ToggleLike(context.Background(), 10, 2)
		require.NoError(t, err)
		assert.Equal(t, []uint{2}, likes)
	})
}
