// Package summary はダッシュボードのアクティビティサマリーを組み立てる。
package summary

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/identityx/internal/activity"
	"github.com/hitoshi/identityx/internal/model"
)

// ConnectionLister はユーザーの接続一覧取得のインターフェース。
type ConnectionLister interface {
	ListByUserID(ctx context.Context, userID string) ([]*model.Connection, error)
}

// EventQuerier はイベント検索のインターフェース。
type EventQuerier interface {
	Query(ctx context.Context, userID string, filter model.EventFilter) ([]*model.Event, error)
}

// Recorder はサマリー生成に関するメトリクス記録のインターフェース。
type Recorder interface {
	RecordSummaryBuilt(rangeValue string, duration time.Duration)
	RecordSummaryFailure()
	RecordSessionDivergence(rangeValue string)
}

// Summary はダッシュボードに返す期間集計。
type Summary struct {
	// Range は実際に適用された期間（"7d" / "30d" / "90d"）。
	Range string
	Since time.Time

	TotalAccounts int
	TotalLogins   int
	// TotalActiveSessions はlogin数 - logout数の算術値。負になり得る。
	TotalActiveSessions int
	// ReplayedActiveSessions はスタック再生による値。常に0以上。
	ReplayedActiveSessions int

	TrendData []activity.TrendPoint
	// RawEvents は集計対象となったイベントをtimestampの昇順で保持する。
	RawEvents []*model.Event
}

// Service はサマリー生成のサービス層。
type Service struct {
	connections ConnectionLister
	events      EventQuerier
	metrics     Recorder
	logger      *slog.Logger
	timeout     time.Duration
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。timeoutが0以下の場合はストア呼び出しに期限を設けない。
func NewService(
	connections ConnectionLister,
	events EventQuerier,
	metrics Recorder,
	logger *slog.Logger,
	timeout time.Duration,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		connections: connections,
		events:      events,
		metrics:     metrics,
		logger:      logger,
		timeout:     timeout,
		now:         time.Now,
	}
}

// BuildSummary はユーザーの期間サマリーを生成する。
// 期間指定が"7d"/"30d"以外の場合は"90d"として扱う。
// 読み取り専用で、同じ時刻・同じストア内容に対しては同じ結果を返す。
// ストアの失敗は部分的な結果にせず、SummaryUnavailableエラーとして返す。
func (s *Service) BuildSummary(ctx context.Context, userID, rangeValue string) (*Summary, error) {
	start := time.Now()
	rangeValue = activity.NormalizeRange(rangeValue)
	since := activity.ResolveStart(rangeValue, s.now())

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	connections, err := s.connections.ListByUserID(ctx, userID)
	if err != nil {
		return nil, s.unavailable("接続一覧の取得に失敗しました", userID, rangeValue, err)
	}

	var matched []*model.Event
	if len(connections) > 0 {
		events, err := s.events.Query(ctx, userID, activity.ScopeFilter(connections, since))
		if err != nil {
			return nil, s.unavailable("イベントの検索に失敗しました", userID, rangeValue, err)
		}
		matched = activity.MatchEvents(events, connections, since)
	} else {
		matched = make([]*model.Event, 0)
	}

	agg := activity.Aggregate(connections, matched)
	replayed := activity.ReplayActiveSessions(matched)

	if replayed != agg.ActiveSessions {
		s.logger.Debug("アクティブセッション数の算出結果が一致しません",
			slog.String("user_id", userID),
			slog.String("range", rangeValue),
			slog.Int("arithmetic", agg.ActiveSessions),
			slog.Int("replayed", replayed),
		)
		if s.metrics != nil {
			s.metrics.RecordSessionDivergence(rangeValue)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordSummaryBuilt(rangeValue, time.Since(start))
	}

	return &Summary{
		Range:                  rangeValue,
		Since:                  since,
		TotalAccounts:          agg.TotalAccounts,
		TotalLogins:            agg.TotalLogins,
		TotalActiveSessions:    agg.ActiveSessions,
		ReplayedActiveSessions: replayed,
		TrendData:              activity.Trend(matched),
		RawEvents:              matched,
	}, nil
}

func (s *Service) unavailable(msg, userID, rangeValue string, err error) error {
	s.logger.Error(msg,
		slog.String("user_id", userID),
		slog.String("range", rangeValue),
		slog.String("error", err.Error()),
	)
	if s.metrics != nil {
		s.metrics.RecordSummaryFailure()
	}
	return model.NewSummaryUnavailableError()
}
