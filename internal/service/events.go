package service

import (
	"context"
	"time"

	"mosaic/internal/events"
	"mosaic/internal/middleware"
)

// emit publishes e without failing the caller; realtime delivery is best effort.
func emit(ctx context.Context, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil {
		middleware.Logger.WarnContext(ctx, "event publish failed", "event", e.Type, "error", err)
	}
}
