// Package maintenance runs periodic housekeeping for the notification outbox
// as Go tickers inside the API process.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool the tasks need.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval time.Duration // Purge old sent/failed outbox rows
	RequeueInterval time.Duration // Return stuck 'sending' rows to the queue
	Retention       time.Duration // Age after which delivered rows are purged
	StuckAfter      time.Duration // Age after which a 'sending' row is stuck
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 30 * time.Minute,
		RequeueInterval: 5 * time.Minute,
		Retention:       30 * 24 * time.Hour,
		StuckAfter:      10 * time.Minute,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, db Execer, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"requeue", cfg.RequeueInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { Cleanup(ctx, db, cfg.Retention, logger) })
	}

	if cfg.RequeueInterval > 0 {
		t := time.NewTicker(cfg.RequeueInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { RequeueStuck(ctx, db, cfg.StuckAfter, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// Cleanup removes sent or failed notifications older than retention. It
// returns the number of rows removed.
func Cleanup(ctx context.Context, db Execer, retention time.Duration, logger *slog.Logger) int64 {
	tag, err := db.Exec(ctx, `
		DELETE FROM watch_notifications
		WHERE status IN ('sent', 'failed')
		  AND updated_at < NOW() - make_interval(secs => $1)`,
		retention.Seconds())
	if err != nil {
		logger.Warn("Cleanup: failed to purge old notifications", "error", err)
		return 0
	}
	if tag.RowsAffected() > 0 {
		logger.Info("Cleanup: purged old notifications", "count", tag.RowsAffected())
	}
	return tag.RowsAffected()
}

// RequeueStuck returns rows left in 'sending' by a crashed worker to the
// queue. It returns the number of rows requeued.
func RequeueStuck(ctx context.Context, db Execer, stuckAfter time.Duration, logger *slog.Logger) int64 {
	tag, err := db.Exec(ctx, `
		UPDATE watch_notifications
		SET status = 'scheduled', scheduled_for = NOW(), updated_at = NOW()
		WHERE status = 'sending'
		  AND updated_at < NOW() - make_interval(secs => $1)`,
		stuckAfter.Seconds())
	if err != nil {
		logger.Warn("Requeue: failed to requeue stuck notifications", "error", err)
		return 0
	}
	if tag.RowsAffected() > 0 {
		logger.Info("Requeue: returned stuck notifications to the queue", "count", tag.RowsAffected())
	}
	return tag.RowsAffected()
}
