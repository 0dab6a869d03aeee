// Package events defines the domain events emitted by social actions and
// the publishers that carry them out of the process.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event types.
const (
	TypePostCreated    = "post_created"
	TypePostDeleted    = "post_deleted"
	TypePostLiked      = "post_liked"
	TypeCommentCreated = "comment_created"
	TypeUserFollowed   = "user_followed"
)

// Event is a single domain occurrence. RecipientID is zero when nobody in
// particular is addressed; Broadcast marks events every client should see.
type Event struct {
	Type        string         `json:"type"`
	ActorID     uint           `json:"actor_id"`
	RecipientID uint           `json:"recipient_id,omitempty"`
	EntityID    uint           `json:"entity_id"`
	Broadcast   bool           `json:"broadcast"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// encodeEvent renders the JSON envelope shared by every transport.
func encodeEvent(e Event) ([]byte, error) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return json.Marshal(e)
}

// Encode is encodeEvent for transports outside this package.
func Encode(e Event) ([]byte, error) {
	return encodeEvent(e)
}
