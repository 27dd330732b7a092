// Package notify は接続の追加・削除をユーザー単位で配信する。
package notify

import (
	"context"
	"sync"
	"time"
)

// 接続変更の種別。
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// subscriberBuffer は購読者ごとのチャネルのバッファ長。
const subscriberBuffer = 16

// ConnectionChange は接続の追加または削除の通知。
type ConnectionChange struct {
	Action       string    `json:"action"`
	ConnectionID string    `json:"connectionId"`
	Provider     string    `json:"provider"`
	AccountName  string    `json:"accountName"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher は接続変更の発行インターフェース。
type Publisher interface {
	PublishConnectionChange(ctx context.Context, userID string, change ConnectionChange) error
}

// Subscriber は接続変更の購読インターフェース。
// 返されたcancelを呼ぶか、ctxが終了するとチャネルは閉じられる。
type Subscriber interface {
	SubscribeConnectionChanges(ctx context.Context, userID string) (<-chan ConnectionChange, func(), error)
}

// Notifier はPublisherとSubscriberを併せ持つ。
type Notifier interface {
	Publisher
	Subscriber
}

// LocalNotifier はプロセス内で完結するNotifier。
// 購読者のチャネルが詰まっている場合、その購読者への通知は破棄される。
type LocalNotifier struct {
	mu          sync.Mutex
	subscribers map[string]map[chan ConnectionChange]struct{}
}

// NewLocalNotifier はLocalNotifierを生成する。
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{
		subscribers: make(map[string]map[chan ConnectionChange]struct{}),
	}
}

// PublishConnectionChange は同じユーザーの全購読者に通知を送る。
func (n *LocalNotifier) PublishConnectionChange(_ context.Context, userID string, change ConnectionChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subscribers[userID] {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

// SubscribeConnectionChanges はユーザーの接続変更を受け取るチャネルを返す。
func (n *LocalNotifier) SubscribeConnectionChanges(ctx context.Context, userID string) (<-chan ConnectionChange, func(), error) {
	ch := make(chan ConnectionChange, subscriberBuffer)

	n.mu.Lock()
	if n.subscribers[userID] == nil {
		n.subscribers[userID] = make(map[chan ConnectionChange]struct{})
	}
	n.subscribers[userID][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			n.mu.Lock()
			delete(n.subscribers[userID], ch)
			if len(n.subscribers[userID]) == 0 {
				delete(n.subscribers, userID)
			}
			n.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel, nil
}

// SubscriberCount は指定ユーザーの購読者数を返す。
func (n *LocalNotifier) SubscriberCount(userID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subscribers[userID])
}

// compile-time interface check
var _ Notifier = (*LocalNotifier)(nil)
