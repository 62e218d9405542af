package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	mu    sync.Mutex
	sql   []string
	args  [][]any
	rows  int64
	err   error
	calls chan struct{}
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.mu.Lock()
	r.sql = append(r.sql, sql)
	r.args = append(r.args, args)
	r.mu.Unlock()
	if r.calls != nil {
		select {
		case r.calls <- struct{}{}:
		default:
		}
	}
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	return pgconn.NewCommandTag("DELETE " + strconv.FormatInt(r.rows, 10)), nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupPassesRetention(t *testing.T) {
	db := &recordingExecer{rows: 3}
	n := Cleanup(context.Background(), db, 30*24*time.Hour, quietLogger())

	assert.Equal(t, int64(3), n)
	require.Len(t, db.sql, 1)
	assert.Contains(t, db.sql[0], "DELETE FROM watch_notifications")
	assert.Equal(t, []any{float64(30 * 24 * 3600)}, db.args[0])
}

func TestRequeueStuckSwallowsErrors(t *testing.T) {
	db := &recordingExecer{err: errors.New("connection refused")}
	n := RequeueStuck(context.Background(), db, 10*time.Minute, quietLogger())

	assert.Zero(t, n)
	require.Len(t, db.sql, 1)
	assert.Contains(t, db.sql[0], "status = 'sending'")
}

func TestStartRunsTasksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	db := &recordingExecer{calls: make(chan struct{}, 1)}

	done := make(chan struct{})
	go func() {
		Start(ctx, db, Config{
			CleanupInterval: 5 * time.Millisecond,
			Retention:       time.Hour,
		}, quietLogger())
		close(done)
	}()

	select {
	case <-db.calls:
	case <-time.After(time.Second):
		t.Fatal("cleanup never ran")
	}
	cancel()
	<-done
}
