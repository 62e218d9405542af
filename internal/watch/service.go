package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Stations resolves station identifiers for validation and display.
type Stations interface {
	Has(id string) bool
	NameOf(id string) string
}

// View is a watch joined with station display names.
type View struct {
	ID              string     `json:"id"`
	FromStationID   string     `json:"from_station_id"`
	FromStationName string     `json:"from_station_name"`
	ToStationID     string     `json:"to_station_id"`
	ToStationName   string     `json:"to_station_name"`
	TravelDate      string     `json:"travel_date"`
	CabinClass      CabinClass `json:"cabin_class"`
	DepartureStart  string     `json:"departure_start"`
	DepartureEnd    string     `json:"departure_end"`
	HighSpeedOnly   bool       `json:"high_speed_only"`
	IsActive        bool       `json:"is_active"`
	Status          Status     `json:"status"`
	StatusReason    string     `json:"status_reason,omitempty"`
	LastCheckedAt   *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// BulkSkip records a watch a bulk action left untouched.
type BulkSkip struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult is the outcome of BulkDecline or BulkDelete.
type BulkResult struct {
	Affected []Request
	Skipped  []BulkSkip
}

// Service implements the user-triggered watch operations. It runs
// concurrently with the monitor; both go through the Store's conditional
// updates.
type Service struct {
	store    Store
	stations Stations
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewService wires a Service. loc decides what "today" means for date checks.
func NewService(store Store, stations Stations, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		stations: stations,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the time source. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates the input and persists a new PENDING watch.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Request, error) {
	if userID == "" {
		return nil, invalid("user is required")
	}
	now := s.now()
	date, err := in.Validate(now.In(s.loc).Format(DateLayout))
	if err != nil {
		return nil, err
	}
	for _, id := range []string{in.FromStationID, in.ToStationID} {
		if s.stations != nil && !s.stations.Has(id) {
			return nil, invalid("unknown station %q", id)
		}
	}

	req := &Request{
		ID:              uuid.NewString(),
		UserID:          userID,
		FromStationID:   in.FromStationID,
		ToStationID:     in.ToStationID,
		TravelDate:      date,
		CabinClass:      in.CabinClass,
		DepartureWindow: in.Window,
		HighSpeedOnly:   in.HighSpeedOnly,
		IsActive:        true,
		Status:          StatusPending,
		CreatedAt:       now.UTC(),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("Watch created", "watch_id", req.ID, "user_id", userID,
		"from", req.FromStationID, "to", req.ToStationID, "date", req.Day())
	return req, nil
}

// Decline moves the caller's PENDING watch to FAILED ("user declined").
func (s *Service) Decline(ctx context.Context, userID, id string) (*Request, error) {
	cur, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if cur.Status != StatusPending {
		return nil, invalid("not pending")
	}

	err = s.store.UpdateStatus(ctx, id, StatusUpdate{
		IsActive:     false,
		Status:       StatusFailed,
		StatusReason: ReasonUserDeclined,
	})
	if errors.Is(err, ErrNotPending) {
		// the monitor got there first
		return nil, invalid("not pending")
	}
	if err != nil {
		return nil, fmt.Errorf("decline watch: %w", err)
	}
	s.logger.Info("Watch declined", "watch_id", id, "user_id", userID)
	return s.store.Get(ctx, id)
}

// Delete soft-deletes the caller's terminal watch.
func (s *Service) Delete(ctx context.Context, userID, id string) (*Request, error) {
	cur, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if cur.Status == StatusPending {
		return nil, invalid("still pending")
	}
	if err := s.store.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		return nil, err
	}
	s.logger.Info("Watch deleted", "watch_id", id, "user_id", userID)
	return s.store.Get(ctx, id)
}

// ListActive returns the caller's non-deleted watches with station names,
// newest first. statuses narrows the result when non-empty.
func (s *Service) ListActive(ctx context.Context, userID string, statuses ...Status) ([]View, error) {
	reqs, err := s.store.ListByUser(ctx, userID, ListFilter{Statuses: statuses})
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(reqs))
	for i := range reqs {
		views = append(views, s.View(&reqs[i]))
	}
	return views, nil
}

// BulkDecline declines every non-deleted watch of the caller whose status is
// in statuses (PENDING when empty). Non-pending matches are skipped.
func (s *Service) BulkDecline(ctx context.Context, userID string, statuses ...Status) (*BulkResult, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusPending}
	}
	reqs, err := s.store.ListByUser(ctx, userID, ListFilter{Statuses: statuses})
	if err != nil {
		return nil, err
	}

	res := &BulkResult{}
	for _, r := range reqs {
		updated, err := s.Decline(ctx, userID, r.ID)
		if err != nil {
			if IsValidation(err) || IsNotFound(err) {
				res.Skipped = append(res.Skipped, BulkSkip{ID: r.ID, Reason: reasonOf(err)})
				continue
			}
			return res, err
		}
		res.Affected = append(res.Affected, *updated)
	}
	return res, nil
}

// BulkDelete soft-deletes every non-deleted watch of the caller whose status
// is in statuses (COMPLETED and FAILED when empty). Pending matches are
// skipped.
func (s *Service) BulkDelete(ctx context.Context, userID string, statuses ...Status) (*BulkResult, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusCompleted, StatusFailed}
	}
	reqs, err := s.store.ListByUser(ctx, userID, ListFilter{Statuses: statuses})
	if err != nil {
		return nil, err
	}

	res := &BulkResult{}
	for _, r := range reqs {
		updated, err := s.Delete(ctx, userID, r.ID)
		if err != nil {
			if IsValidation(err) || IsNotFound(err) {
				res.Skipped = append(res.Skipped, BulkSkip{ID: r.ID, Reason: reasonOf(err)})
				continue
			}
			return res, err
		}
		res.Affected = append(res.Affected, *updated)
	}
	return res, nil
}

// View joins a watch with its station names.
func (s *Service) View(r *Request) View {
	return View{
		ID:              r.ID,
		FromStationID:   r.FromStationID,
		FromStationName: s.nameOf(r.FromStationID),
		ToStationID:     r.ToStationID,
		ToStationName:   s.nameOf(r.ToStationID),
		TravelDate:      r.Day(),
		CabinClass:      r.CabinClass,
		DepartureStart:  r.DepartureWindow.Start,
		DepartureEnd:    r.DepartureWindow.End,
		HighSpeedOnly:   r.HighSpeedOnly,
		IsActive:        r.IsActive,
		Status:          r.Status,
		StatusReason:    r.StatusReason,
		LastCheckedAt:   r.LastCheckedAt,
		CreatedAt:       r.CreatedAt,
	}
}

// owned re-reads a watch and hides other users' and deleted watches.
func (s *Service) owned(ctx context.Context, userID, id string) (*Request, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.UserID != userID || cur.DeletedAt != nil {
		return nil, &NotFoundError{ID: id}
	}
	return cur, nil
}

func (s *Service) nameOf(id string) string {
	if s.stations == nil {
		return id
	}
	return s.stations.NameOf(id)
}

func reasonOf(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Reason
	}
	return "not found"
}
