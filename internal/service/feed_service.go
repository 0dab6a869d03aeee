package service

import (
	"context"

	"mosaic/internal/cache"
	"mosaic/internal/models"
	"mosaic/internal/observability"
	"mosaic/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FeedPageSize is the number of posts per feed page.
const FeedPageSize = 4

// FeedPage is one page of the global feed, newest posts first.
type FeedPage struct {
	Posts      []*models.Post `json:"posts"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Total      int64          `json:"total"`
	Count      int            `json:"count"`
}

type FeedService struct {
	posts repository.PostRepository
}

func NewFeedService(posts repository.PostRepository) *FeedService {
	return &FeedService{posts: posts}
}

// GetFeed returns the requested page. Pages below 1 are treated as 1; pages
// past the end are empty rather than an error.
func (s *FeedService) GetFeed(ctx context.Context, page int) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}

	span, ctx := observability.NewSpan(ctx, "feed.get")
	defer span.End()
	span.AddAttributes(attribute.Int("feed.page", page))

	var cached FeedPage
	if cache.FeedPage(ctx, page, &cached) {
		span.AddAttributes(attribute.Bool("feed.cache_hit", true))
		return &cached, nil
	}

	total, err := s.posts.Count(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	out := &FeedPage{
		Posts:      []*models.Post{},
		Page:       page,
		TotalPages: totalPages(total, FeedPageSize),
		Total:      total,
	}

	skip := (page - 1) * FeedPageSize
	if int64(skip) < total {
		posts, err := s.posts.List(ctx, FeedPageSize, skip)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		out.Posts = posts
	}
	out.Count = len(out.Posts)

	cache.StoreFeedPage(ctx, page, out)
	return out, nil
}

func totalPages(total int64, size int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
