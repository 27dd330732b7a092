// Package user は退会処理を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/identityx/internal/model"
)

// UserStore は退会に必要なユーザーの参照と削除。
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// OwnedDeleter はユーザーが所有する行をまとめて削除する。
// イベント・接続・セッションの各リポジトリが満たす。
type OwnedDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

type withdrawStep struct {
	name    string
	deleter OwnedDeleter
}

// Service は退会処理のサービス層。
type Service struct {
	users UserStore
	steps []withdrawStep
}

// NewService はServiceを生成する。nilのdeleterは退会時にスキップする。
func NewService(users UserStore, sessions, events, connections OwnedDeleter) *Service {
	// eventsはconnectionsへの外部キーを持たないので、接続より先に明示的に消す。
	// セッションは最後に消し、途中で失敗してもユーザーが再試行できるようにする。
	candidates := []withdrawStep{
		{name: "events", deleter: events},
		{name: "connections", deleter: connections},
		{name: "sessions", deleter: sessions},
	}
	var steps []withdrawStep
	for _, s := range candidates {
		if s.deleter != nil {
			steps = append(steps, s)
		}
	}
	return &Service{users: users, steps: steps}
}

// Withdraw はユーザーと所有データを events → connections → sessions → users の順に削除する。
// いずれかの削除に失敗した時点で中断する。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return model.NewUserNotFoundError()
	}

	for _, step := range s.steps {
		if err := step.deleter.DeleteByUserID(ctx, userID); err != nil {
			slog.Error("withdraw aborted",
				slog.String("user_id", userID),
				slog.String("step", step.name),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("failed to delete %s: %w", step.name, err)
		}
	}

	if err := s.users.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user withdrawn", slog.String("user_id", userID))
	return nil
}
