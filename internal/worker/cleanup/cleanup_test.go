package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestJob(t *testing.T, buf *bytes.Buffer) (*CleanupJob, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	job := NewCleanupJob(db, newTestLogger(buf))
	job.now = func() time.Time { return time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC) }
	return job, mock
}

func TestCleanupJob_Run_DeletesExpiredSessions(t *testing.T) {
	var buf bytes.Buffer
	job, mock := newTestJob(t, &buf)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1`).
		WithArgs(time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, job.Run(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	job, mock := newTestJob(t, &buf)

	mock.ExpectExec(`DELETE FROM sessions`).
		WillReturnResult(sqlmock.NewResult(0, 42))

	require.NoError(t, job.Run(context.Background()))

	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry["deleted_count"] == float64(42) {
			found = true
		}
	}
	assert.True(t, found, "ログに deleted_count=42 が記録されていない: %s", buf.String())
}

func TestCleanupJob_Run_NothingToDelete_IsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	job, mock := newTestJob(t, &buf)

	mock.ExpectExec(`DELETE FROM sessions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, job.Run(context.Background()))
}

func TestCleanupJob_Run_DBError_ReturnsWrappedError(t *testing.T) {
	var buf bytes.Buffer
	job, mock := newTestJob(t, &buf)

	dbErr := errors.New("connection reset")
	mock.ExpectExec(`DELETE FROM sessions`).WillReturnError(dbErr)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestCleanupJob_RunEvery_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	job, mock := newTestJob(t, &buf)

	mock.ExpectExec(`DELETE FROM sessions`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunEvery(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunEvery did not stop after cancel")
	}
}
