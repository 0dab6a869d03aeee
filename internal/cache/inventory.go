package cache

import (
	"context"
	"fmt"
	"time"

	"mosaic/internal/middleware"
	"mosaic/internal/observability"
)

const (
	UserKeyPrefix     = "user:%d"
	FeedVersionKey    = "feed:version"
	FeedPageKeyPrefix = "feed:v%d:page:%d"
)

const (
	UserTTL = 5 * time.Minute
	FeedTTL = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// FeedPageKey returns the cache key for a feed page under the current feed
// version. Bumping the version orphans every cached page at once.
func FeedPageKey(ctx context.Context, page int) string {
	var version int64
	if client != nil {
		v, err := client.Get(ctx, FeedVersionKey).Int64()
		if err == nil {
			version = v
		}
	}
	return fmt.Sprintf(FeedPageKeyPrefix, version, page)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateFeed bumps the feed version so every cached page goes stale.
func InvalidateFeed(ctx context.Context) {
	if client == nil {
		return
	}
	if err := client.Incr(ctx, FeedVersionKey).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "feed cache invalidation failed", "error", err)
	}
}

// FeedPage reads a cached feed page into dest, recording hit/miss.
func FeedPage(ctx context.Context, page int, dest any) bool {
	found, err := GetJSON(ctx, FeedPageKey(ctx, page), dest)
	if err != nil || !found {
		observability.FeedCacheResults.WithLabelValues("miss").Inc()
		return false
	}
	observability.FeedCacheResults.WithLabelValues("hit").Inc()
	return true
}

// StoreFeedPage caches a feed page best-effort.
func StoreFeedPage(ctx context.Context, page int, v any) {
	if err := SetJSON(ctx, FeedPageKey(ctx, page), v, FeedTTL); err != nil {
		middleware.Logger.WarnContext(ctx, "feed cache write failed", "page", page, "error", err)
	}
}
