package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/identityx/internal/model"
)

const eventColumns = `id, user_id, connection_id, type, provider, account_name, timestamp, metadata, created_at`

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
// イベントは追記のみで、更新系のメソッドは持たない。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

// Create はイベントを追記する。
func (r *PostgresEventRepo) Create(ctx context.Context, e *model.Event) error {
	metadata, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}

	var connectionID sql.NullString
	if e.ConnectionID != "" {
		connectionID = sql.NullString{String: e.ConnectionID, Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO events (id, user_id, connection_id, type, provider, account_name, timestamp, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.UserID, connectionID, string(e.Type), e.Provider, e.AccountName,
		e.Timestamp, metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}
	return nil
}

// Query はユーザーのイベントをフィルタ条件で検索し、timestampの昇順で返す。
// フィルタのスライスがnilの条件は適用しない。空スライスは一致なしとして扱う。
// 同時刻のイベントは登録順に並ぶ。
func (r *PostgresEventRepo) Query(ctx context.Context, userID string, filter model.EventFilter) ([]*model.Event, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + eventColumns + ` FROM events WHERE user_id = $1`)
	args := []any{userID}

	if filter.Providers != nil {
		args = append(args, pq.Array(filter.Providers))
		fmt.Fprintf(&b, ` AND provider = ANY($%d)`, len(args))
	}
	if filter.AccountNames != nil {
		args = append(args, pq.Array(filter.AccountNames))
		fmt.Fprintf(&b, ` AND account_name = ANY($%d)`, len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		fmt.Fprintf(&b, ` AND timestamp >= $%d`, len(args))
	}
	if filter.Types != nil {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		fmt.Fprintf(&b, ` AND type = ANY($%d)`, len(args))
	}
	b.WriteString(` ORDER BY timestamp ASC, created_at ASC`)

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("イベントの検索に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByAccount は(provider, account_name)の組に一致するイベントをtimestampの降順で返す。
// 同じ組の接続が重複登録されていても、どの接続から見ても同じイベントが返る。
func (r *PostgresEventRepo) ListByAccount(ctx context.Context, userID, provider, accountName string) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE user_id = $1 AND provider = $2 AND account_name = $3
		 ORDER BY timestamp DESC, created_at DESC`,
		userID, provider, accountName,
	)
	if err != nil {
		return nil, fmt.Errorf("接続のイベント取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// DeleteByUserID はユーザーの全イベントを削除する。
func (r *PostgresEventRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーのイベント削除に失敗しました: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	events := make([]*model.Event, 0)
	for rows.Next() {
		e := &model.Event{}
		var (
			connectionID sql.NullString
			eventType    string
			metadata     []byte
		)
		if err := rows.Scan(
			&e.ID, &e.UserID, &connectionID, &eventType, &e.Provider, &e.AccountName,
			&e.Timestamp, &metadata, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("イベント行の読み取りに失敗しました: %w", err)
		}
		e.ConnectionID = connectionID.String
		e.Type = model.EventType(eventType)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("イベントのメタデータ解析に失敗しました: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベントの走査に失敗しました: %w", err)
	}
	return events, nil
}

// marshalMetadata はメタデータをjsonb列に格納する文字列に変換する。nilはNULLになる。
func marshalMetadata(metadata map[string]any) (sql.NullString, error) {
	if metadata == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("イベントのメタデータ変換に失敗しました: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
