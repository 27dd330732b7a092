package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/identityx/internal/model"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, created_at, updated_at`

const (
	selectUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	selectUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	// ログイン識別子はemailとusernameのどちらでもよい。両方に当たる場合はemail一致の行を返す。
	selectUserByLoginQuery = `SELECT ` + userColumns + ` FROM users
		WHERE email = $1 OR username = $1
		ORDER BY (email = $1) DESC, created_at ASC
		LIMIT 1`

	insertUserQuery = `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

// PostgresUserRepo はアカウントをusersテーブルに保存する。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は見つからない場合にnil, nilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, selectUserByIDQuery, id))
}

// FindByEmail は登録時の重複チェックに使う。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, selectUserByEmailQuery, email))
}

func (r *PostgresUserRepo) FindByEmailOrUsername(ctx context.Context, identifier string) (*model.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, selectUserByLoginQuery, identifier))
}

func (r *PostgresUserRepo) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return &u, nil
}

// Create はemailが既存行と衝突するとErrDuplicateKeyを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, u *model.User) error {
	_, err := r.db.ExecContext(ctx, insertUserQuery,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName,
		u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return ErrDuplicateKey
	case err != nil:
		return fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}
	return nil
}

// DeleteByID は退会の最終段で呼ばれる。行が無ければErrUserNotFoundを返す。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteUserQuery, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return nil
}

var _ UserRepository = (*PostgresUserRepo)(nil)
