// Package connection は接続済みアカウント管理のドメインロジックを提供する。
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/identityx/internal/model"
	"github.com/hitoshi/identityx/internal/notify"
	"github.com/hitoshi/identityx/internal/repository"
	"github.com/hitoshi/identityx/internal/security"
)

// 入力値の最大長（文字数）。
const (
	maxProviderLength    = 64
	maxAccountNameLength = 255
)

// CreateInput は接続作成の入力値。
type CreateInput struct {
	Provider    string
	AccountName string
}

// Service は接続管理のサービス層。
// 接続一覧取得、作成、削除のビジネスロジックを提供する。
type Service struct {
	connRepo  repository.ConnectionRepository
	sanitizer security.InputSanitizer
	publisher notify.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// publisherがnilの場合、接続変更の通知は行わない。
func NewService(
	connRepo repository.ConnectionRepository,
	sanitizer security.InputSanitizer,
	publisher notify.Publisher,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		connRepo:  connRepo,
		sanitizer: sanitizer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ListConnections はユーザーの接続一覧を作成日時の昇順で返す。
func (s *Service) ListConnections(ctx context.Context, userID string) ([]*model.Connection, error) {
	conns, err := s.connRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("接続一覧の取得に失敗しました: %w", err)
	}
	if conns == nil {
		conns = make([]*model.Connection, 0)
	}
	return conns, nil
}

// CreateConnection はユーザーの接続を作成する。
// 同じ (provider, accountName) の重複登録は拒否しない。
func (s *Service) CreateConnection(ctx context.Context, userID string, input CreateInput) (*model.Connection, error) {
	provider := s.sanitizer.SanitizeText(input.Provider)
	accountName := s.sanitizer.SanitizeText(input.AccountName)

	if provider == "" {
		return nil, model.NewInvalidConnectionError("providerは必須です。")
	}
	if accountName == "" {
		return nil, model.NewInvalidConnectionError("accountNameは必須です。")
	}
	if len([]rune(provider)) > maxProviderLength {
		return nil, model.NewInvalidConnectionError(fmt.Sprintf("providerは%d文字以内で指定してください。", maxProviderLength))
	}
	if len([]rune(accountName)) > maxAccountNameLength {
		return nil, model.NewInvalidConnectionError(fmt.Sprintf("accountNameは%d文字以内で指定してください。", maxAccountNameLength))
	}

	conn := &model.Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Provider:    provider,
		AccountName: accountName,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.connRepo.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("接続の作成に失敗しました: %w", err)
	}

	s.publish(ctx, userID, notify.ActionCreated, conn)
	return conn, nil
}

// FindOwnedConnection はユーザーが所有する接続を返す。
// 存在しない場合と他ユーザーの所有である場合は区別せずConnectionNotFoundを返す。
func (s *Service) FindOwnedConnection(ctx context.Context, userID, connectionID string) (*model.Connection, error) {
	if _, err := uuid.Parse(connectionID); err != nil {
		return nil, model.NewConnectionNotFoundError()
	}

	conn, err := s.connRepo.FindByIDAndUserID(ctx, connectionID, userID)
	if err != nil {
		return nil, fmt.Errorf("接続の取得に失敗しました: %w", err)
	}
	if conn == nil {
		return nil, model.NewConnectionNotFoundError()
	}
	return conn, nil
}

// DeleteConnection はユーザーが所有する接続を削除する。
// 接続に紐づくイベントは削除しない。
func (s *Service) DeleteConnection(ctx context.Context, userID, connectionID string) error {
	conn, err := s.FindOwnedConnection(ctx, userID, connectionID)
	if err != nil {
		return err
	}

	deleted, err := s.connRepo.DeleteByIDAndUserID(ctx, connectionID, userID)
	if err != nil {
		return fmt.Errorf("接続の削除に失敗しました: %w", err)
	}
	// 取得から削除までの間に別リクエストで削除された場合
	if !deleted {
		return model.NewConnectionNotFoundError()
	}

	s.publish(ctx, userID, notify.ActionDeleted, conn)
	return nil
}

// publish は接続変更を通知する。失敗してもエラーは返さずログに残す。
func (s *Service) publish(ctx context.Context, userID, action string, conn *model.Connection) {
	if s.publisher == nil {
		return
	}
	change := notify.ConnectionChange{
		Action:       action,
		ConnectionID: conn.ID,
		Provider:     conn.Provider,
		AccountName:  conn.AccountName,
		OccurredAt:   s.now().UTC(),
	}
	if err := s.publisher.PublishConnectionChange(ctx, userID, change); err != nil {
		s.logger.Warn("接続変更の通知に失敗しました",
			slog.String("user_id", userID),
			slog.String("connection_id", conn.ID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}
