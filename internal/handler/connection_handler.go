package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/identityx/internal/notify"
)

// defaultStreamHeartbeat はSSE接続を維持するためのコメント送信間隔。
const defaultStreamHeartbeat = 25 * time.Second

// ConnectionServiceInterface は接続ハンドラーが必要とするサービスインターフェース。
type ConnectionServiceInterface interface {
	// ListConnections はユーザーの接続一覧を返す。重複も除外しない。
	ListConnections(ctx context.Context, userID string) ([]connectionResponse, error)
	// CreateConnection は接続を作成する。
	CreateConnection(ctx context.Context, userID, provider, accountName string) (*connectionResponse, error)
	// DeleteConnection はユーザーが所有する接続を削除する。
	DeleteConnection(ctx context.Context, userID, connectionID string) error
}

// ConnectionHandler は接続管理のHTTPハンドラー。
type ConnectionHandler struct {
	service    ConnectionServiceInterface
	subscriber notify.Subscriber
	heartbeat  time.Duration
	closing    <-chan struct{} // nilの場合はクライアント切断まで配信を続ける
}

// CloseStreamsWith はcloserのClose時にストリームを終了させる。
func (h *ConnectionHandler) CloseStreamsWith(closer *StreamCloser) *ConnectionHandler {
	if closer != nil {
		h.closing = closer.Done()
	}
	return h
}

// NewConnectionHandler はConnectionHandlerを生成する。
// subscriberがnilの場合、ストリームエンドポイントは503を返す。
func NewConnectionHandler(service ConnectionServiceInterface, subscriber notify.Subscriber) *ConnectionHandler {
	return &ConnectionHandler{
		service:    service,
		subscriber: subscriber,
		heartbeat:  defaultStreamHeartbeat,
	}
}

// connectionResponse は接続情報のAPIレスポンス。
type connectionResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Provider    string    `json:"provider"`
	AccountName string    `json:"accountName"`
	CreatedAt   time.Time `json:"createdAt"`
}

type createConnectionRequest struct {
	Provider    string `json:"provider"`
	AccountName string `json:"accountName"`
}

// ListConnections はユーザーの接続一覧を取得する。
// GET /api/connections
func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conns, err := h.service.ListConnections(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conns)
}

// CreateConnection は接続を作成する。
// POST /api/connections
func (h *ConnectionHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createConnectionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	conn, err := h.service.CreateConnection(r.Context(), userID, req.Provider, req.AccountName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, conn)
}

// DeleteConnection は接続を削除する。
// DELETE /api/connections/{id}
// 存在しない、他ユーザーの所有、ID形式が不正のいずれも404を返す。
func (h *ConnectionHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	connectionID := chi.URLParam(r, "id")

	if err := h.service.DeleteConnection(r.Context(), userID, connectionID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StreamConnectionChanges は接続の追加・削除をserver-sent eventsで配信する。
// GET /api/connections/stream
func (h *ConnectionHandler) StreamConnectionChanges(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if h.subscriber == nil {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes, unsubscribe, err := h.subscriber.SubscribeConnectionChanges(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer unsubscribe()

	rc := http.NewResponseController(w)
	// サーバーのWriteTimeoutをストリームには適用しない
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		slog.Error("streaming not supported", slog.String("error", err.Error()))
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closing:
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				slog.Error("failed to encode connection change", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: connection\ndata: %s\n\n", data)
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
