package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Outbox persists notifications and the per-user delivery settings they
// depend on.
type Outbox interface {
	PushEnabled(ctx context.Context, userID string) (bool, error)
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
	Enqueue(ctx context.Context, m Message) (int64, error)
	ClaimDue(ctx context.Context, limit int) ([]Claimed, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	Retry(ctx context.Context, id int64, reason string, at time.Time) error
}

// PreparedStatements are registered on every pooled connection by the db
// package.
func PreparedStatements() map[string]string {
	return map[string]string{
		"user_push_enabled": `SELECT COALESCE(
			(SELECT push_enabled FROM user_push_settings WHERE user_id = $1), true)`,
		"get_user_device_tokens": "SELECT token FROM user_devices WHERE user_id = $1 AND is_active = true ORDER BY token",
	}
}

// PgOutbox is the Postgres-backed Outbox.
type PgOutbox struct {
	pool *pgxpool.Pool
}

// NewPgOutbox wraps a pool whose connections carry PreparedStatements.
func NewPgOutbox(pool *pgxpool.Pool) *PgOutbox {
	return &PgOutbox{pool: pool}
}

// PushEnabled reports the user's push preference. Users without a settings
// row have push enabled.
func (o *PgOutbox) PushEnabled(ctx context.Context, userID string) (bool, error) {
	var enabled bool
	if err := o.pool.QueryRow(ctx, "user_push_enabled", userID).Scan(&enabled); err != nil {
		return false, fmt.Errorf("get push setting: %w", err)
	}
	return enabled, nil
}

// DeviceTokens returns the user's active device tokens.
func (o *PgOutbox) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := o.pool.Query(ctx, "get_user_device_tokens", userID)
	if err != nil {
		return nil, fmt.Errorf("get device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Enqueue inserts a scheduled notification due immediately.
func (o *PgOutbox) Enqueue(ctx context.Context, m Message) (int64, error) {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return 0, fmt.Errorf("encode notification data: %w", err)
	}
	var id int64
	err = o.pool.QueryRow(ctx, `
		INSERT INTO watch_notifications (user_id, title, body, data, status, scheduled_for)
		VALUES ($1, $2, $3, $4, 'scheduled', NOW())
		RETURNING id`,
		m.UserID, m.Title, m.Body, data,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// ClaimDue atomically claims a batch of due notifications for sending.
// Uses FOR UPDATE SKIP LOCKED for safe concurrent dispatch.
func (o *PgOutbox) ClaimDue(ctx context.Context, limit int) ([]Claimed, error) {
	rows, err := o.pool.Query(ctx, `
		UPDATE watch_notifications
		SET status = 'sending', attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM watch_notifications
			WHERE status = 'scheduled' AND scheduled_for <= NOW()
			ORDER BY scheduled_for
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, user_id, title, body, data, attempts`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due notifications: %w", err)
	}
	defer rows.Close()

	var claimed []Claimed
	for rows.Next() {
		var (
			c    Claimed
			data []byte
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Body, &data, &c.Attempts); err != nil {
			return nil, fmt.Errorf("scan claimed: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &c.Data); err != nil {
				return nil, fmt.Errorf("decode notification %d data: %w", c.ID, err)
			}
		}
		claimed = append(claimed, c)
	}
	return claimed, rows.Err()
}

// MarkSent marks a notification as successfully sent.
func (o *PgOutbox) MarkSent(ctx context.Context, id int64) error {
	_, err := o.pool.Exec(ctx, `
		UPDATE watch_notifications SET status = 'sent', sent_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// MarkFailed marks a notification as permanently failed.
func (o *PgOutbox) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := o.pool.Exec(ctx, `
		UPDATE watch_notifications SET status = 'failed', last_error = $2, updated_at = NOW()
		WHERE id = $1`, id, reason)
	return err
}

// Retry puts a claimed notification back in the queue, due at at.
func (o *PgOutbox) Retry(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := o.pool.Exec(ctx, `
		UPDATE watch_notifications
		SET status = 'scheduled', last_error = $2, scheduled_for = $3, updated_at = NOW()
		WHERE id = $1`, id, reason, at)
	return err
}
