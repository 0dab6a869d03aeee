package service

import (
	"context"

	"mosaic/internal/events"
	"mosaic/internal/models"
	"mosaic/internal/observability"
	"mosaic/internal/repository"
)

// FollowResult reports the follow state and the target's counts after a toggle.
type FollowResult struct {
	IsFollowing    bool  `json:"is_following"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
}

// SocialGraphService toggles follow and like edges.
type SocialGraphService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	posts   repository.PostRepository
	events  events.Publisher
}

func NewSocialGraphService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	publisher events.Publisher,
) *SocialGraphService {
	return &SocialGraphService{users: users, follows: follows, posts: posts, events: publisher}
}

func (s *SocialGraphService) ToggleFollow(ctx context.Context, actorID, targetID uint) (*FollowResult, error) {
	if actorID == targetID {
		return nil, models.NewSelfFollowError()
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	following, err := s.follows.Toggle(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	followers, err := s.follows.CountFollowers(ctx, targetID)
	if err != nil {
		return nil, err
	}
	followingCount, err := s.follows.CountFollowing(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if following {
		observability.RecordSocialAction("follow")
		emit(ctx, s.events, events.Event{
			Type:        events.TypeUserFollowed,
			ActorID:     actorID,
			RecipientID: targetID,
			EntityID:    targetID,
			Payload:     map[string]any{"follower_id": actorID, "followers_count": followers},
		})
	} else {
		observability.RecordSocialAction("unfollow")
	}

	return &FollowResult{
		IsFollowing:    following,
		FollowersCount: followers,
		FollowingCount: followingCount,
	}, nil
}

// ToggleLike flips actorID's like on the post and returns the liker ids,
// most recent first.
func (s *SocialGraphService) ToggleLike(ctx context.Context, postID, actorID uint) ([]uint, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	liked, err := s.posts.ToggleLike(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}
	likes, err := s.posts.LikerIDs(ctx, postID)
	if err != nil {
		return nil, err
	}

	if !liked {
		observability.RecordSocialAction("unlike")
		return likes, nil
	}
	observability.RecordSocialAction("like")
	if post.UserID != actorID {
		emit(ctx, s.events, events.Event{
			Type:        events.TypePostLiked,
			ActorID:     actorID,
			RecipientID: post.UserID,
			EntityID:    postID,
			Payload:     map[string]any{"post_id": postID, "likes": likes},
		})
	}
	return likes, nil
}
