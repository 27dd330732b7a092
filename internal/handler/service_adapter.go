package handler

import (
	"context"

	"github.com/hitoshi/identityx/internal/activity"
	"github.com/hitoshi/identityx/internal/auth"
	"github.com/hitoshi/identityx/internal/connection"
	"github.com/hitoshi/identityx/internal/event"
	"github.com/hitoshi/identityx/internal/model"
	"github.com/hitoshi/identityx/internal/summary"
	"github.com/hitoshi/identityx/internal/user"
)

// ConnectionServiceAdapter は connection.Service を ConnectionServiceInterface に適合させるアダプタ。
type ConnectionServiceAdapter struct {
	svc *connection.Service
}

// NewConnectionServiceAdapter はConnectionServiceAdapterを生成する。
func NewConnectionServiceAdapter(svc *connection.Service) *ConnectionServiceAdapter {
	return &ConnectionServiceAdapter{svc: svc}
}

// ListConnections はユーザーの接続一覧をhandlerレスポンス型で返す。
func (a *ConnectionServiceAdapter) ListConnections(ctx context.Context, userID string) ([]connectionResponse, error) {
	conns, err := a.svc.ListConnections(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]connectionResponse, len(conns))
	for i, c := range conns {
		results[i] = toConnectionResponse(c)
	}
	return results, nil
}

// CreateConnection は接続を作成しhandlerレスポンス型で返す。
func (a *ConnectionServiceAdapter) CreateConnection(ctx context.Context, userID, provider, accountName string) (*connectionResponse, error) {
	conn, err := a.svc.CreateConnection(ctx, userID, connection.CreateInput{
		Provider:    provider,
		AccountName: accountName,
	})
	if err != nil {
		return nil, err
	}
	resp := toConnectionResponse(conn)
	return &resp, nil
}

// DeleteConnection は接続を削除する。
func (a *ConnectionServiceAdapter) DeleteConnection(ctx context.Context, userID, connectionID string) error {
	return a.svc.DeleteConnection(ctx, userID, connectionID)
}

func toConnectionResponse(c *model.Connection) connectionResponse {
	return connectionResponse{
		ID:          c.ID,
		UserID:      c.UserID,
		Provider:    c.Provider,
		AccountName: c.AccountName,
		CreatedAt:   c.CreatedAt,
	}
}

// EventServiceAdapter は event.Service を EventServiceInterface に適合させるアダプタ。
type EventServiceAdapter struct {
	svc *event.Service
}

// NewEventServiceAdapter はEventServiceAdapterを生成する。
func NewEventServiceAdapter(svc *event.Service) *EventServiceAdapter {
	return &EventServiceAdapter{svc: svc}
}

// RecordEvent はイベントを記録しhandlerレスポンス型で返す。
func (a *EventServiceAdapter) RecordEvent(ctx context.Context, userID string, input event.RecordInput) (*eventResponse, error) {
	e, err := a.svc.Record(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	resp := toEventResponse(e)
	return &resp, nil
}

// ListForConnection は接続のイベントをhandlerレスポンス型で返す。
func (a *EventServiceAdapter) ListForConnection(ctx context.Context, userID, connectionID string) ([]eventResponse, error) {
	events, err := a.svc.ListForConnection(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}
	return toEventResponses(events), nil
}

func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:           e.ID,
		UserID:       e.UserID,
		ConnectionID: e.ConnectionID,
		Type:         string(e.Type),
		Provider:     e.Provider,
		AccountName:  e.AccountName,
		Timestamp:    e.Timestamp,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
	}
}

func toEventResponses(events []*model.Event) []eventResponse {
	results := make([]eventResponse, len(events))
	for i, e := range events {
		results[i] = toEventResponse(e)
	}
	return results
}

// SummaryServiceAdapter は summary.Service を SummaryServiceInterface に適合させるアダプタ。
type SummaryServiceAdapter struct {
	svc *summary.Service
}

// NewSummaryServiceAdapter はSummaryServiceAdapterを生成する。
func NewSummaryServiceAdapter(svc *summary.Service) *SummaryServiceAdapter {
	return &SummaryServiceAdapter{svc: svc}
}

// BuildSummary はサマリーを生成しhandlerレスポンス型で返す。
func (a *SummaryServiceAdapter) BuildSummary(ctx context.Context, userID, rangeValue string) (*summaryResponse, error) {
	s, err := a.svc.BuildSummary(ctx, userID, rangeValue)
	if err != nil {
		return nil, err
	}
	return toSummaryResponse(s), nil
}

func toSummaryResponse(s *summary.Summary) *summaryResponse {
	return &summaryResponse{
		Range:                  s.Range,
		Since:                  s.Since,
		TotalAccounts:          s.TotalAccounts,
		TotalLogins:            s.TotalLogins,
		TotalActiveSessions:    s.TotalActiveSessions,
		ReplayedActiveSessions: s.ReplayedActiveSessions,
		TrendData:              toTrendResponses(s.TrendData),
		RawEvents:              toEventResponses(s.RawEvents),
	}
}

func toTrendResponses(points []activity.TrendPoint) []trendPointResponse {
	results := make([]trendPointResponse, len(points))
	for i, p := range points {
		results[i] = trendPointResponse{
			Date:     p.Date,
			Provider: p.Provider,
			Count:    p.Count,
		}
	}
	return results
}

// UserServiceAdapter は user.Service を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	svc *user.Service
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
func NewUserServiceAdapter(svc *user.Service) *UserServiceAdapter {
	return &UserServiceAdapter{svc: svc}
}

// Withdraw はユーザーの退会処理を実行する。
func (a *UserServiceAdapter) Withdraw(ctx context.Context, userID string) error {
	return a.svc.Withdraw(ctx, userID)
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*auth.Service)(nil)
var _ ConnectionServiceInterface = (*ConnectionServiceAdapter)(nil)
var _ EventServiceInterface = (*EventServiceAdapter)(nil)
var _ SummaryServiceInterface = (*SummaryServiceAdapter)(nil)
var _ UserServiceInterface = (*UserServiceAdapter)(nil)
