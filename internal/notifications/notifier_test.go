package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_PublishUser_NoRedis(t *testing.T) {
	// Notifier with nil Redis should return nil error (fail-open/noop)
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), 1, "test payload"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := parseUserChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}

	_, ok := parseUserChannel("chat:conv:5")
	assert.False(t, ok)
	_, ok = parseUserChannel("notifications:user:abc")
	assert.False(t, ok)
}

func TestEvent_Encode(t *testing.T) {
	msg, err := Event{Type: EventUserFollowed, Payload: map[string]interface{}{"follower_id": 2}}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_followed","payload":{"follower_id":2}}`, msg)
}

func TestNotifier_Subscriber_StopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == UserChannel(4) {
			payloads <- payload
		}
	}))

	require.NoError(t, n.PublishUser(context.Background(), 4, "before-cancel"))
	select {
	case p := <-payloads:
		assert.Equal(t, "before-cancel", p)
	case <-time.After(time.Second):
		t.Fatal("payload not delivered")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	_ = n.PublishUser(context.Background(), 4, "after-cancel")
	assert.Never(t, func() bool {
		select {
		case p := <-payloads:
			return p == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)
}
