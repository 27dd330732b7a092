package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/identityx/internal/event"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	// RecordEvent はユーザーが所有する接続のイベントを記録する。
	RecordEvent(ctx context.Context, userID string, input event.RecordInput) (*eventResponse, error)
	// ListForConnection は接続のイベントを新しい順に返す。
	ListForConnection(ctx context.Context, userID, connectionID string) ([]eventResponse, error)
}

// SummaryServiceInterface はサマリーハンドラーが必要とするサービスインターフェース。
type SummaryServiceInterface interface {
	BuildSummary(ctx context.Context, userID, rangeValue string) (*summaryResponse, error)
}

// EventHandler はイベント記録とサマリー取得のHTTPハンドラー。
type EventHandler struct {
	events  EventServiceInterface
	summary SummaryServiceInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(events EventServiceInterface, summary SummaryServiceInterface) *EventHandler {
	return &EventHandler{
		events:  events,
		summary: summary,
	}
}

// eventResponse はイベントのAPIレスポンス。
type eventResponse struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	ConnectionID string         `json:"connectionId,omitempty"`
	Type         string         `json:"type"`
	Provider     string         `json:"provider"`
	AccountName  string         `json:"accountName"`
	Timestamp    time.Time      `json:"timestamp"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// trendPointResponse はトレンド系列の1点。
type trendPointResponse struct {
	Date     string `json:"date"`
	Provider string `json:"provider"`
	Count    int    `json:"count"`
}

// summaryResponse はダッシュボードのサマリーレスポンス。
// totalActiveSessionsはlogin数 - logout数で負になり得る。replayedActiveSessionsは常に0以上。
type summaryResponse struct {
	Range                  string               `json:"range"`
	Since                  time.Time            `json:"since"`
	TotalAccounts          int                  `json:"totalAccounts"`
	TotalLogins            int                  `json:"totalLogins"`
	TotalActiveSessions    int                  `json:"totalActiveSessions"`
	ReplayedActiveSessions int                  `json:"replayedActiveSessions"`
	TrendData              []trendPointResponse `json:"trendData"`
	RawEvents              []eventResponse      `json:"rawEvents"`
}

type recordEventRequest struct {
	ConnectionID string         `json:"connectionId"`
	Type         string         `json:"type"`
	Timestamp    *time.Time     `json:"timestamp,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// RecordEvent はログイン/ログアウトイベントを記録する。
// POST /api/events
func (h *EventHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req recordEventRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	e, err := h.events.RecordEvent(r.Context(), userID, event.RecordInput{
		ConnectionID: req.ConnectionID,
		Type:         req.Type,
		Timestamp:    req.Timestamp,
		Metadata:     req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

// GetSummary は期間内のアクティビティサマリーを返す。
// GET /api/events/summary/{range}
// GET /api/events/summary
// 不明な期間指定は90日として扱う。
func (h *EventHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rangeValue := chi.URLParam(r, "range")

	s, err := h.summary.BuildSummary(r.Context(), userID, rangeValue)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// ListConnectionEvents は接続のイベントを新しい順に返す。
// GET /api/events/{connectionId}
func (h *EventHandler) ListConnectionEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	connectionID := chi.URLParam(r, "connectionId")

	events, err := h.events.ListForConnection(r.Context(), userID, connectionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}
