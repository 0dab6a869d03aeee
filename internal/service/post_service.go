package service

import (
	"context"
	"strings"

	"mosaic/internal/events"
	"mosaic/internal/models"
	"mosaic/internal/observability"
	"mosaic/internal/repository"
)

// MediaStorer stores and removes uploaded media.
type MediaStorer interface {
	StorePostMedia(ctx context.Context, ownerID uint, content []byte) (*StoredMedia, error)
	StoreAvatar(ctx context.Context, ownerID uint, content []byte) (*StoredMedia, error)
	Remove(ctx context.Context, keys ...string)
}

type CreatePostInput struct {
	OwnerID uint
	Caption string
	Media   []byte
}

type PostService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	media    MediaStorer
	events   events.Publisher
}

func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	media MediaStorer,
	publisher events.Publisher,
) *PostService {
	return &PostService{posts: posts, comments: comments, media: media, events: publisher}
}

// Create stores the uploaded media and then the post. If the post cannot be
// saved the stored media is removed again.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.OwnerID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if len(in.Media) == 0 {
		return nil, models.NewMediaRequiredError("Media file is required")
	}

	stored, err := s.media.StorePostMedia(ctx, in.OwnerID, in.Media)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.URL == "" {
		return nil, models.NewMediaRequiredError("Media upload failed")
	}

	post := &models.Post{
		Caption:      strings.TrimSpace(in.Caption),
		MediaURL:     stored.URL,
		MediaWebPURL: stored.WebPURL,
		MediaType:    stored.ContentType,
		MediaKey:     stored.Key,
		MediaWebPKey: stored.WebPKey,
		UserID:       in.OwnerID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.media.Remove(ctx, stored.Keys()...)
		return nil, err
	}
	observability.RecordSocialAction("post_create")

	created, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	emit(ctx, s.events, events.Event{
		Type:      events.TypePostCreated,
		ActorID:   in.OwnerID,
		EntityID:  created.ID,
		Broadcast: true,
		Payload:   map[string]any{"post": created},
	})
	return created, nil
}

func (s *PostService) Get(ctx context.Context, postID uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, postID)
}

// GetForEdit returns the post when actorID owns it.
func (s *PostService) GetForEdit(ctx context.Context, postID, actorID uint) (*models.Post, error) {
	return s.owned(ctx, postID, actorID, "You can only edit your own posts")
}

// UpdateCaption replaces the caption. A blank caption leaves the post as is.
func (s *PostService) UpdateCaption(ctx context.Context, postID, actorID uint, caption string) (*models.Post, error) {
	post, err := s.owned(ctx, postID, actorID, "You can only edit your own posts")
	if err != nil {
		return nil, err
	}

	caption = strings.TrimSpace(caption)
	if caption == "" {
		return post, nil
	}
	if err := s.posts.UpdateCaption(ctx, postID, caption); err != nil {
		return nil, err
	}
	post.Caption = caption
	return post, nil
}

// Delete removes the post with its likes and comments, then its media.
func (s *PostService) Delete(ctx context.Context, postID, actorID uint) error {
	post, err := s.owned(ctx, postID, actorID, "You can only delete your own posts")
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	observability.RecordSocialAction("post_delete")

	s.media.Remove(ctx, post.MediaKey, post.MediaWebPKey)
	emit(ctx, s.events, events.Event{
		Type:      events.TypePostDeleted,
		ActorID:   actorID,
		EntityID:  postID,
		Broadcast: true,
		Payload:   map[string]any{"post_id": postID},
	})
	return nil
}

// AddComment appends a comment and returns the post's comments in order.
func (s *PostService) AddComment(ctx context.Context, postID, actorID uint, text string) ([]models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, UserID: actorID, Text: text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.RecordSocialAction("comment")

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	e := events.Event{
		Type:      events.TypeCommentCreated,
		ActorID:   actorID,
		EntityID:  postID,
		Broadcast: true,
		Payload:   map[string]any{"post_id": postID, "comment_id": comment.ID, "text": text},
	}
	if post.UserID != actorID {
		e.RecipientID = post.UserID
	}
	emit(ctx, s.events, e)
	return comments, nil
}

func (s *PostService) owned(ctx context.Context, postID, actorID uint, denied string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actorID {
		return nil, models.NewForbiddenError(denied)
	}
	return post, nil
}
