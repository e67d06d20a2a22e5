package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Subby02/web-project/internal/domain"
)

const badgeTTL = 24 * time.Hour

// RedisCartNotifier publishes cart events on a channel and keeps the latest
// badge count per owner under cart:count:<owner>.
type RedisCartNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisCartNotifier(addr string, password string, db int, channel string) *RedisCartNotifier {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if channel == "" {
		channel = "cart-events"
	}

	return &RedisCartNotifier{client: client, channel: channel}
}

func (n *RedisCartNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

func (n *RedisCartNotifier) Close() error {
	return n.client.Close()
}

func (n *RedisCartNotifier) Publish(ctx context.Context, event domain.CartEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = n.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, badgeKey(event.OwnerID), event.Count, badgeTTL)
		pipe.Publish(ctx, n.channel, payload)
		return nil
	})
	return err
}

// BadgeCount returns the last published count for owner. The bool is false
// when nothing has been published yet or the entry expired.
func (n *RedisCartNotifier) BadgeCount(ctx context.Context, ownerID string) (int, bool, error) {
	val, err := n.client.Get(ctx, badgeKey(ownerID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// Subscribe opens a subscription to the event channel. The caller closes it.
func (n *RedisCartNotifier) Subscribe(ctx context.Context) *redis.PubSub {
	return n.client.Subscribe(ctx, n.channel)
}

func badgeKey(ownerID string) string {
	return "cart:count:" + ownerID
}
