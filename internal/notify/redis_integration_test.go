package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subby02/web-project/internal/domain"
)

func TestRedisCartNotifierPublishesAndStoresBadge(t *testing.T) {
	addr := os.Getenv("WEBPROJECT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set WEBPROJECT_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := fmt.Sprintf("cart-events-it-%d", time.Now().UnixNano())
	n := NewRedisCartNotifier(addr, "", 0, channel)
	t.Cleanup(func() {
		_ = n.Close()
	})
	require.NoError(t, n.Ping(ctx))

	sub := n.Subscribe(ctx)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	owner := fmt.Sprintf("usr-it-%d", time.Now().UnixNano())
	event := domain.CartEvent{OwnerID: owner, Action: domain.CartActionAdd, Count: 3, At: time.Now().UTC()}
	require.NoError(t, n.Publish(ctx, event))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got domain.CartEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, 3, got.Count)

	count, ok, err := n.BadgeCount(ctx, owner)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, count)

	_, ok, err = n.BadgeCount(ctx, owner+"-missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
