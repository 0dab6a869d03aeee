package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mosaic_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SocialActionsTotal counts social graph mutations (follow, unfollow, like, unlike, comment, post_create, post_delete).
	SocialActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaic_social_actions_total",
		Help: "Social graph and post mutations by action",
	}, []string{"action"})

	// FeedCacheResults counts feed page cache lookups by result.
	FeedCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaic_feed_cache_results_total",
		Help: "Feed page cache hits and misses",
	}, []string{"result"})

	// MediaUploadBytes records stored media sizes by kind (image, video, avatar).
	MediaUploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mosaic_media_upload_bytes",
		Help:    "Size of stored media objects in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
	}, []string{"kind"})

	// RealtimeEventsTotal counts published domain events by type and transport.
	RealtimeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaic_realtime_events_total",
		Help: "Domain events published by type and transport",
	}, []string{"event", "transport"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaic_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery starts a latency observation; call the returned func when the query is done.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordSocialAction bumps the social action counter.
func RecordSocialAction(action string) {
	SocialActionsTotal.WithLabelValues(action).Inc()
}
