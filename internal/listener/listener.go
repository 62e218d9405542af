// Package listener provides a Postgres LISTEN/NOTIFY consumer for watch
// creation events. It holds a dedicated pgx connection (not from the pool)
// listening on the `watch_created` channel.
//
// The watch_requests insert trigger fires pg_notify with the owning user ID.
// The scheduler uses the event to re-check its cadence right away instead of
// waiting for the next periodic check.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	channel          = "watch_created"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Handler is called for every event with the payload (the user ID).
type Handler func(ctx context.Context, userID string)

// Start opens a dedicated connection and listens on the watch_created
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, onCreate Handler, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, onCreate, logger)
		if ctx.Err() != nil {
			logger.Info("Watch listener stopped (context cancelled)")
			return
		}

		logger.Error("Watch listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = nextBackoff(backoff)
		case <-ctx.Done():
			return
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, maxReconnect)
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, onCreate Handler, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Watch listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		logger.Debug("Watch created event received", "user_id", notification.Payload)
		if onCreate != nil {
			onCreate(ctx, notification.Payload)
		}
	}
}
