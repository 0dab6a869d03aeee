package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mosaic/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.Send:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func TestNotifier_Disabled(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), 1, "x"))
	assert.NoError(t, n.PublishBroadcast(context.Background(), "x"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
}

func TestHub_StartWiringRoutesRedisMessages(t *testing.T) {
	t.Parallel()
	n := NewNotifier(newTestRedis(t))
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, hub.StartWiring(ctx, n))

	one, err := hub.Register(1, nil)
	require.NoError(t, err)
	two, err := hub.Register(2, nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishUser(ctx, 1, "direct"))
	assert.Equal(t, "direct", receive(t, one))

	require.NoError(t, n.PublishBroadcast(ctx, "all"))
	assert.Equal(t, "all", receive(t, one))
	assert.Equal(t, "all", receive(t, two))
	assert.Empty(t, drain(two))
}

func TestRealtimePublisher_LocalHub(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	owner, err := hub.Register(1, nil)
	require.NoError(t, err)
	other, err := hub.Register(2, nil)
	require.NoError(t, err)

	p := NewRealtimePublisher(NewNotifier(nil), hub)

	require.NoError(t, p.Publish(context.Background(), events.Event{Type: events.TypePostLiked, RecipientID: 1, EntityID: 9}))
	msgs := drain(owner)
	require.Len(t, msgs, 1)
	assert.Empty(t, drain(other))

	var e events.Event
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &e))
	assert.Equal(t, events.TypePostLiked, e.Type)
	assert.Equal(t, uint(9), e.EntityID)

	require.NoError(t, p.Publish(context.Background(), events.Event{Type: events.TypePostCreated, Broadcast: true}))
	assert.Len(t, drain(owner), 1)
	assert.Len(t, drain(other), 1)
}

func TestRealtimePublisher_RedisOnly(t *testing.T) {
	t.Parallel()
	rdb := newTestRedis(t)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	target, err := hub.Register(5, nil)
	require.NoError(t, err)

	// Without the subscription nothing reaches the hub: Redis is the only path.
	p := NewRealtimePublisher(NewNotifier(rdb), hub)
	require.NoError(t, p.Publish(ctx, events.Event{Type: events.TypeUserFollowed, RecipientID: 5}))
	assert.Empty(t, drain(target))

	require.NoError(t, hub.StartWiring(ctx, NewNotifier(rdb)))
	require.NoError(t, p.Publish(ctx, events.Event{Type: events.TypeUserFollowed, RecipientID: 5}))
	assert.Contains(t, receive(t, target), events.TypeUserFollowed)
}

func TestRealtimePublisher_BroadcastReachesRecipientOnce(t *testing.T) {
	t.Parallel()
	comment := events.Event{Type: events.TypeCommentCreated, RecipientID: 1, EntityID: 3, Broadcast: true}

	t.Run("local hub", func(t *testing.T) {
		t.Parallel()
		hub := NewHub()
		owner, err := hub.Register(1, nil)
		require.NoError(t, err)
		other, err := hub.Register(2, nil)
		require.NoError(t, err)

		p := NewRealtimePublisher(NewNotifier(nil), hub)
		require.NoError(t, p.Publish(context.Background(), comment))
		assert.Len(t, drain(owner), 1)
		assert.Len(t, drain(other), 1)
	})

	t.Run("redis", func(t *testing.T) {
		t.Parallel()
		rdb := newTestRedis(t)
		hub := NewHub()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, hub.StartWiring(ctx, NewNotifier(rdb)))

		owner, err := hub.Register(1, nil)
		require.NoError(t, err)

		p := NewRealtimePublisher(NewNotifier(rdb), hub)
		require.NoError(t, p.Publish(ctx, comment))
		assert.Contains(t, receive(t, owner), events.TypeCommentCreated)

		// A follow-up direct event must be the next message the owner sees.
		require.NoError(t, p.Publish(ctx, events.Event{Type: events.TypeUserFollowed, RecipientID: 1}))
		assert.Contains(t, receive(t, owner), events.TypeUserFollowed)
		assert.Empty(t, drain(owner))
	})
}
