package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/albapepper/seatwatch/internal/metrics"
)

// Dispatcher is the monitor's entry point. Send never fails the caller:
// disabled push, missing tokens and storage errors are logged and dropped.
type Dispatcher struct {
	outbox Outbox
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher over outbox.
func NewDispatcher(outbox Outbox, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{outbox: outbox, logger: logger}
}

// Send queues a notification for userID if they can receive one.
func (d *Dispatcher) Send(ctx context.Context, userID, title, body string, data map[string]string) {
	if d == nil || d.outbox == nil {
		return
	}

	enabled, err := d.outbox.PushEnabled(ctx, userID)
	if err != nil {
		d.logger.Warn("push setting lookup failed", "user_id", userID, "error", err)
		return
	}
	if !enabled {
		d.logger.Debug("push disabled, dropping notification", "user_id", userID)
		return
	}

	tokens, err := d.outbox.DeviceTokens(ctx, userID)
	if err != nil {
		d.logger.Warn("device token lookup failed", "user_id", userID, "error", err)
		return
	}
	if len(tokens) == 0 {
		d.logger.Debug("no device tokens, dropping notification", "user_id", userID)
		return
	}

	id, err := d.outbox.Enqueue(ctx, Message{UserID: userID, Title: title, Body: body, Data: data})
	if err != nil {
		d.logger.Error("enqueue notification failed", "user_id", userID, "error", err)
		return
	}
	d.logger.Info("Notification queued", "notification_id", id, "user_id", userID, "type", data["type"])
}

// --------------------------------------------------------------------------
// Dispatch worker
// --------------------------------------------------------------------------

// Worker drains the outbox into a Transport.
type Worker struct {
	outbox    Outbox
	transport Transport
	interval  time.Duration
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// NewWorker creates a dispatch worker with the default interval and batch
// size.
func NewWorker(outbox Outbox, transport Transport, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		outbox:    outbox,
		transport: transport,
		interval:  dispatchInterval,
		batchSize: dispatchBatchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Start runs the dispatch loop. Blocks until ctx is cancelled. Intended to
// be called with `go`.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Notification dispatch worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, failed, err := w.DispatchBatch(ctx)
			if err != nil {
				w.logger.Error("dispatch error", "error", err)
			} else if sent+failed > 0 {
				w.logger.Info("dispatch batch", "sent", sent, "failed", failed)
			}
		case <-ctx.Done():
			w.logger.Info("Notification dispatch worker stopped")
			return
		}
	}
}

// DispatchBatch claims due rows and delivers them. Transport errors are
// retried with a fixed backoff until maxAttempts, then marked failed.
func (w *Worker) DispatchBatch(ctx context.Context) (sent, failed int, err error) {
	claimed, err := w.outbox.ClaimDue(ctx, w.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, row := range claimed {
		tokens, tokErr := w.outbox.DeviceTokens(ctx, row.UserID)
		if tokErr == nil && len(tokens) == 0 {
			tokErr = ErrNoTokens
		}
		if tokErr != nil {
			w.logger.Warn("no device tokens", "user_id", row.UserID, "error", tokErr)
			_ = w.outbox.MarkFailed(ctx, row.ID, "no device tokens")
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			failed++
			continue
		}

		sendErr := w.transport.Deliver(ctx, tokens, row.Message)
		switch {
		case sendErr == nil:
			_ = w.outbox.MarkSent(ctx, row.ID)
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
			sent++
		case row.Attempts < maxAttempts && !errors.Is(sendErr, ErrNoTokens):
			w.logger.Warn("send failed, will retry",
				"notification_id", row.ID, "attempt", row.Attempts, "error", sendErr)
			_ = w.outbox.Retry(ctx, row.ID, sendErr.Error(), w.now().Add(retryBackoff))
			metrics.NotificationsTotal.WithLabelValues("retried").Inc()
			failed++
		default:
			w.logger.Warn("send failed", "notification_id", row.ID, "error", sendErr)
			_ = w.outbox.MarkFailed(ctx, row.ID, sendErr.Error())
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			failed++
		}
	}
	return sent, failed, nil
}
