// Package event はログイン/ログアウトイベントの記録と取得を提供する。
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/identityx/internal/model"
	"github.com/hitoshi/identityx/internal/repository"
)

// maxClockSkew は未来方向に許容するタイムスタンプのずれ。
const maxClockSkew = 5 * time.Minute

// ConnectionFinder はユーザーが所有する接続の取得インターフェース。
type ConnectionFinder interface {
	FindOwnedConnection(ctx context.Context, userID, connectionID string) (*model.Connection, error)
}

// Recorder はイベント記録のメトリクスインターフェース。
type Recorder interface {
	RecordEventRecorded(eventType string)
}

// RecordInput はイベント記録の入力値。
type RecordInput struct {
	ConnectionID string
	Type         string
	// Timestamp がnilの場合は記録時刻を使用する。
	Timestamp *time.Time
	Metadata  map[string]any
}

// Service はイベントのサービス層。
type Service struct {
	eventRepo   repository.EventRepository
	connections ConnectionFinder
	metrics     Recorder
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。metricsはnilでもよい。
func NewService(
	eventRepo repository.EventRepository,
	connections ConnectionFinder,
	metrics Recorder,
) *Service {
	return &Service{
		eventRepo:   eventRepo,
		connections: connections,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Record はユーザーの接続に対するイベントを記録する。
// プロバイダーとアカウント名は接続から引き継ぐため、集計時に必ず接続と一致する。
func (s *Service) Record(ctx context.Context, userID string, input RecordInput) (*model.Event, error) {
	eventType, ok := model.ParseEventType(input.Type)
	if !ok {
		return nil, model.NewInvalidEventError("typeはloginまたはlogoutを指定してください。")
	}
	if input.ConnectionID == "" {
		return nil, model.NewInvalidEventError("connectionIdは必須です。")
	}

	// TIMESTAMPTZはマイクロ秒精度のため、保存値と応答値を揃える
	now := s.now().UTC().Truncate(time.Microsecond)
	ts := now
	if input.Timestamp != nil {
		if input.Timestamp.IsZero() {
			return nil, model.NewInvalidEventError("timestampが不正です。")
		}
		if input.Timestamp.After(now.Add(maxClockSkew)) {
			return nil, model.NewInvalidEventError("未来のtimestampは指定できません。")
		}
		ts = input.Timestamp.UTC().Truncate(time.Microsecond)
	}

	conn, err := s.connections.FindOwnedConnection(ctx, userID, input.ConnectionID)
	if err != nil {
		return nil, err
	}

	e := &model.Event{
		ID:           uuid.New().String(),
		UserID:       userID,
		ConnectionID: conn.ID,
		Type:         eventType,
		Provider:     conn.Provider,
		AccountName:  conn.AccountName,
		Timestamp:    ts,
		Metadata:     input.Metadata,
		CreatedAt:    now,
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベントの記録に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordEventRecorded(string(eventType))
	}
	return e, nil
}

// ListForConnection はユーザーが所有する接続のイベントを新しい順に返す。
// イベントは接続IDではなく(provider, accountName)の組で照合する。
func (s *Service) ListForConnection(ctx context.Context, userID, connectionID string) ([]*model.Event, error) {
	conn, err := s.connections.FindOwnedConnection(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListByAccount(ctx, userID, conn.Provider, conn.AccountName)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	if events == nil {
		events = make([]*model.Event, 0)
	}
	return events, nil
}
