package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// channelPrefix はユーザーごとのPub/Subチャネル名の接頭辞。
const channelPrefix = "identityx:connections:"

// OpenRedis はREDIS_URL形式の接続文字列からクライアントを生成し、疎通を確認する。
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisNotifier はRedis Pub/Subを使用したNotifier。
// 複数のAPIプロセス間で接続変更を共有する。
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisNotifier はRedisNotifierを生成する。
func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{client: client, logger: logger}
}

func channelName(userID string) string {
	return channelPrefix + userID
}

// PublishConnectionChange は接続変更をユーザーのチャネルに発行する。
func (n *RedisNotifier) PublishConnectionChange(ctx context.Context, userID string, change ConnectionChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode connection change: %w", err)
	}
	if err := n.client.Publish(ctx, channelName(userID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish connection change: %w", err)
	}
	return nil
}

// SubscribeConnectionChanges はユーザーのチャネルを購読する。
// 購読の確立を待ってからチャネルを返す。
func (n *RedisNotifier) SubscribeConnectionChanges(ctx context.Context, userID string) (<-chan ConnectionChange, func(), error) {
	pubsub := n.client.Subscribe(ctx, channelName(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe connection changes: %w", err)
	}

	out := make(chan ConnectionChange, subscriberBuffer)
	var once sync.Once
	cancel := func() {
		once.Do(func() { pubsub.Close() })
	}

	go func() {
		defer close(out)
		defer cancel()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change ConnectionChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					n.logger.Warn("接続変更通知の解析に失敗しました",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// compile-time interface check
var _ Notifier = (*RedisNotifier)(nil)
