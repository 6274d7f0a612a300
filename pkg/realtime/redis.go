package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"idea-incubator-backend/pkg/logging"
)

// RedisNotifier publishes events on a Redis channel and relays every event it
// receives from that channel to the local notifier. Several API instances
// sharing one channel therefore reach each other's websocket clients.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	local   Notifier
	log     *logrus.Entry
}

// NewRedisNotifier 解析 REDIS_URL 并创建转发器
func NewRedisNotifier(redisURL, channel string, local Notifier) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return NewRedisNotifierWithClient(redis.NewClient(opts), channel, local), nil
}

// NewRedisNotifierWithClient wraps an existing client.
func NewRedisNotifierWithClient(client *redis.Client, channel string, local Notifier) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		local:   local,
		log:     logging.Component("realtime.redis"),
	}
}

// Ping 检查 Redis 连接
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

func (n *RedisNotifier) Broadcast(event string, payload interface{}) {
	n.publish(Event{Name: event, Payload: payload}, func() { n.local.Broadcast(event, payload) })
}

func (n *RedisNotifier) SendToUser(userID, event string, payload interface{}) {
	n.publish(Event{Name: event, Payload: payload, UserID: userID}, func() { n.local.SendToUser(userID, event, payload) })
}

// publish falls back to local delivery when Redis is unavailable.
func (n *RedisNotifier) publish(ev Event, fallback func()) {
	raw, err := json.Marshal(ev)
	if err != nil {
		n.log.WithError(err).WithField("event", ev.Name).Warn("failed to encode event")
		return
	}
	if err := n.client.Publish(context.Background(), n.channel, raw).Err(); err != nil {
		n.log.WithError(err).WithField("event", ev.Name).Warn("⚠️  Redis publish failed, delivering locally")
		fallback()
	}
}

// Run relays channel messages to the local notifier until ctx is cancelled.
func (n *RedisNotifier) Run(ctx context.Context) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}
	n.log.WithField("channel", n.channel).Info("📡 Relaying realtime events through Redis")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			n.relay(msg.Payload)
		}
	}
}

func (n *RedisNotifier) relay(raw string) {
	var ev struct {
		Name    string          `json:"event"`
		Payload json.RawMessage `json:"data"`
		UserID  string          `json:"user_id"`
	}
	if err := json.Unmarshal([]byte(raw), &ev); err != nil || ev.Name == "" {
		n.log.WithField("raw", raw).Warn("ignoring malformed relayed event")
		return
	}
	if ev.UserID != "" {
		n.local.SendToUser(ev.UserID, ev.Name, ev.Payload)
		return
	}
	n.local.Broadcast(ev.Name, ev.Payload)
}

// Close 关闭 Redis 客户端
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
