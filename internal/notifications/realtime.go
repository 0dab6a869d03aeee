package notifications

import (
	"context"

	"mosaic/internal/events"
	"mosaic/internal/observability"
)

// RealtimePublisher delivers domain events to websocket clients. With Redis
// configured events go through pub/sub only, and the hub receives them back
// through its subscription; without Redis they go to the local hub directly.
// A broadcast already reaches the recipient, so it is never sent to them twice.
type RealtimePublisher struct {
	notifier *Notifier
	hub      *Hub
}

func NewRealtimePublisher(notifier *Notifier, hub *Hub) *RealtimePublisher {
	return &RealtimePublisher{notifier: notifier, hub: hub}
}

func (p *RealtimePublisher) Publish(ctx context.Context, e events.Event) error {
	raw, err := events.Encode(e)
	if err != nil {
		return err
	}
	payload := string(raw)

	if p.notifier.Enabled() {
		observability.RealtimeEventsTotal.WithLabelValues(e.Type, "redis").Inc()
		switch {
		case e.Broadcast:
			return p.notifier.PublishBroadcast(ctx, payload)
		case e.RecipientID != 0:
			return p.notifier.PublishUser(ctx, e.RecipientID, payload)
		}
		return nil
	}

	if p.hub == nil {
		return nil
	}
	observability.RealtimeEventsTotal.WithLabelValues(e.Type, "local").Inc()
	switch {
	case e.Broadcast:
		p.hub.BroadcastAll(payload)
	case e.RecipientID != 0:
		p.hub.Broadcast(e.RecipientID, payload)
	}
	return nil
}
