package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/identityx/internal/model"
)

// PostgresConnectionRepo はPostgreSQLを使用した接続リポジトリ。
type PostgresConnectionRepo struct {
	db *sql.DB
}

// NewPostgresConnectionRepo はPostgresConnectionRepoを生成する。
func NewPostgresConnectionRepo(db *sql.DB) *PostgresConnectionRepo {
	return &PostgresConnectionRepo{db: db}
}

// ListByUserID はユーザーの接続一覧を作成日時の昇順で返す。
func (r *PostgresConnectionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Connection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, provider, account_name, created_at
		 FROM connections WHERE user_id = $1 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("接続一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	conns := make([]*model.Connection, 0)
	for rows.Next() {
		c := &model.Connection{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Provider, &c.AccountName, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("接続行の読み取りに失敗しました: %w", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("接続一覧の走査に失敗しました: %w", err)
	}
	return conns, nil
}

// Create は接続を作成する。
func (r *PostgresConnectionRepo) Create(ctx context.Context, c *model.Connection) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO connections (id, user_id, provider, account_name, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.Provider, c.AccountName, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("接続の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByIDAndUserID はユーザーが所有する接続を取得する。見つからない場合はnilを返す。
func (r *PostgresConnectionRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Connection, error) {
	c := &model.Connection{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, account_name, created_at
		 FROM connections WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Provider, &c.AccountName, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("接続の取得に失敗しました: %w", err)
	}
	return c, nil
}

// DeleteByIDAndUserID はユーザーが所有する接続を削除する。
// 他ユーザーの接続や存在しないIDの場合はfalseを返す。
func (r *PostgresConnectionRepo) DeleteByIDAndUserID(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM connections WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("接続の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUserID はユーザーの全接続を削除する。
func (r *PostgresConnectionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ユーザーの接続削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ConnectionRepository = (*PostgresConnectionRepo)(nil)
