package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/identityx/internal/model"
)

var connectionRowColumns = []string{"id", "user_id", "provider", "account_name", "created_at"}

func TestPostgresConnectionRepo_ListByUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresConnectionRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM connections WHERE user_id = $1 ORDER BY created_at ASC`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(connectionRowColumns).
			AddRow("conn-1", "user-1", "Google", "alice@x.com", now).
			AddRow("conn-2", "user-1", "GitHub", "alice", now.Add(time.Second)))

	conns, err := repo.ListByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, "Google", conns[0].Provider)
	assert.Equal(t, "alice", conns[1].AccountName)
}

// 接続がない場合は空スライス（nilではない）を返すことを検証
func TestPostgresConnectionRepo_ListByUserID_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresConnectionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM connections`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(connectionRowColumns))

	conns, err := repo.ListByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, conns)
	assert.Empty(t, conns)
}

func TestPostgresConnectionRepo_ListByUserID_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresConnectionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM connections`)).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.ListByUserID(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestPostgresConnectionRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresConnectionRepo(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO connections`)).
		WithArgs("conn-1", "user-1", "Google", "alice@x.com", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &model.Connection{
		ID: "conn-1", UserID: "user-1", Provider: "Google", AccountName: "alice@x.com", CreatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 所有者条件付きの削除で該当なしの場合falseを返すことを検証
func TestPostgresConnectionRepo_DeleteByIDAndUserID(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		want         bool
	}{
		{"deleted", 1, true},
		{"not owned or missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewPostgresConnectionRepo(db)

			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM connections WHERE id = $1 AND user_id = $2`)).
				WithArgs("conn-1", "user-1").
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			got, err := repo.DeleteByIDAndUserID(context.Background(), "conn-1", "user-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostgresConnectionRepo_FindByIDAndUserID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresConnectionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM connections WHERE id = $1 AND user_id = $2`)).
		WithArgs("conn-1", "other-user").
		WillReturnRows(sqlmock.NewRows(connectionRowColumns))

	conn, err := repo.FindByIDAndUserID(context.Background(), "conn-1", "other-user")
	assert.NoError(t, err)
	assert.Nil(t, conn)
}
