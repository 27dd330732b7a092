// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"github.com/hitoshi/identityx/internal/model"
)

var (
	// ErrDuplicateKey は一意制約違反を表す。
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrUserNotFound は削除対象のユーザー行が存在しないことを表す。
	ErrUserNotFound = errors.New("user not found")
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// isUniqueViolation はerrがPostgreSQLの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByEmailOrUsername はメールアドレスまたはユーザー名でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmailOrUsername(ctx context.Context, identifier string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateKeyを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ConnectionRepository は接続済みアカウントの永続化インターフェース。
type ConnectionRepository interface {
	// ListByUserID はユーザーの接続一覧を作成日時の昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Connection, error)

	// Create は接続を作成する。同じ (provider, accountName) の重複登録は許容する。
	Create(ctx context.Context, conn *model.Connection) error

	// FindByIDAndUserID はユーザーが所有する接続を取得する。見つからない場合はnilを返す。
	FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Connection, error)

	// DeleteByIDAndUserID はユーザーが所有する接続を削除する。
	// 削除対象がなかった場合はfalseを返す。
	DeleteByIDAndUserID(ctx context.Context, id, userID string) (bool, error)

	// DeleteByUserID はユーザーの全接続を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// EventRepository はログイン/ログアウトイベントの永続化インターフェース。
type EventRepository interface {
	// Create はイベントを追記する。イベントは更新されない。
	Create(ctx context.Context, event *model.Event) error

	// Query はユーザーのイベントをフィルタ条件で検索し、timestampの昇順で返す。
	Query(ctx context.Context, userID string, filter model.EventFilter) ([]*model.Event, error)

	// ListByAccount は(provider, accountName)の組に一致するイベントをtimestampの降順で返す。
	ListByAccount(ctx context.Context, userID, provider, accountName string) ([]*model.Event, error)

	// DeleteByUserID はユーザーの全イベントを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
