package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, user_id, from_station_id, to_station_id, travel_date, cabin_class,
	departure_start, departure_end, high_speed_only, is_active, status, status_reason,
	last_checked_at, deleted_at, created_at`

// PreparedStatements are registered on every pooled connection by the db
// package. Keys are the statement names used below.
func PreparedStatements() map[string]string {
	return map[string]string{
		"watch_by_id": "SELECT " + columns + " FROM watch_requests WHERE id = $1",
		"watches_active_pending": "SELECT " + columns + ` FROM watch_requests
			WHERE is_active AND status = 'PENDING' AND deleted_at IS NULL
			ORDER BY created_at, id`,
		"watches_open_by_user": "SELECT " + columns + ` FROM watch_requests
			WHERE user_id = $1 AND is_active AND deleted_at IS NULL`,
		"watches_by_user": "SELECT " + columns + ` FROM watch_requests
			WHERE user_id = $1
			  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
			  AND ($3::boolean OR deleted_at IS NULL)
			ORDER BY created_at DESC, id DESC`,
	}
}

// PostgresStore is the production Store backed by the watch_requests table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pool whose connections carry PreparedStatements.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create serializes creations per user with a transaction-scoped advisory
// lock so the limit check and the insert see the same set of watches.
func (s *PostgresStore) Create(ctx context.Context, req *Request) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create watch: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", req.UserID); err != nil {
		return fmt.Errorf("lock user %s: %w", req.UserID, err)
	}

	rows, err := tx.Query(ctx, "watches_open_by_user", req.UserID)
	if err != nil {
		return fmt.Errorf("list open watches: %w", err)
	}
	existing, err := collect(rows)
	if err != nil {
		return err
	}
	if err := CheckLimits(existing, req); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO watch_requests (
			id, user_id, from_station_id, to_station_id, travel_date, cabin_class,
			departure_start, departure_end, high_speed_only, is_active, status,
			status_reason, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		req.ID, req.UserID, req.FromStationID, req.ToStationID, req.TravelDate,
		string(req.CabinClass), req.DepartureWindow.Start, req.DepartureWindow.End,
		req.HighSpeedOnly, req.IsActive, string(req.Status), req.StatusReason, req.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return invalid("an active watch for %s-%s already exists", req.FromStationID, req.ToStationID)
		}
		return fmt.Errorf("insert watch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create watch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Request, error) {
	r, err := scanRequest(s.pool.QueryRow(ctx, "watch_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get watch %s: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, f ListFilter) ([]Request, error) {
	statuses := make([]string, 0, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses = append(statuses, string(st))
	}
	rows, err := s.pool.Query(ctx, "watches_by_user", userID, statuses, f.IncludeDeleted)
	if err != nil {
		return nil, fmt.Errorf("list watches for %s: %w", userID, err)
	}
	return collect(rows)
}

func (s *PostgresStore) FetchActivePending(ctx context.Context) ([]Request, error) {
	rows, err := s.pool.Query(ctx, "watches_active_pending")
	if err != nil {
		return nil, fmt.Errorf("fetch pending watches: %w", err)
	}
	return collect(rows)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, u StatusUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE watch_requests
		SET is_active = $2,
			status = $3,
			status_reason = $4,
			last_checked_at = COALESCE($5, last_checked_at),
			updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING' AND is_active AND deleted_at IS NULL`,
		id, u.IsActive, string(u.Status), u.StatusReason, u.LastCheckedAt)
	if err != nil {
		return fmt.Errorf("update watch %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotPending
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE watch_requests
		SET deleted_at = $2, is_active = false, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND status <> 'PENDING'`,
		id, at)
	if err != nil {
		return fmt.Errorf("delete watch %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur.DeletedAt != nil {
		return &NotFoundError{ID: id}
	}
	return invalid("still pending")
}

// --------------------------------------------------------------------------
// Scanning
// --------------------------------------------------------------------------

func scanRequest(row pgx.Row) (*Request, error) {
	var (
		r             Request
		cabin, status string
		start, end    string
		lastChecked   *time.Time
		deletedAt     *time.Time
	)
	if err := row.Scan(
		&r.ID, &r.UserID, &r.FromStationID, &r.ToStationID, &r.TravelDate, &cabin,
		&start, &end, &r.HighSpeedOnly, &r.IsActive, &status, &r.StatusReason,
		&lastChecked, &deletedAt, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	r.CabinClass = CabinClass(cabin)
	r.Status = Status(status)
	r.DepartureWindow = Window{Start: start, End: end}
	r.LastCheckedAt = lastChecked
	r.DeletedAt = deletedAt
	return &r, nil
}

func collect(rows pgx.Rows) ([]Request, error) {
	defer rows.Close()

	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
