package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/albapepper/seatwatch/internal/metrics"
	"github.com/albapepper/seatwatch/internal/watch"
)

// Notifier delivers a best-effort push to a user. Implementations swallow
// and log their own failures.
type Notifier interface {
	Send(ctx context.Context, userID, title, body string, data map[string]string)
}

// Names resolves station IDs to display names.
type Names interface {
	NameOf(id string) string
}

// Transition is what Apply did to one watch.
type Transition int

const (
	TransitionSkipped   Transition = iota // no longer pending, or deleted
	TransitionChecked                     // still pending, last_checked_at bumped
	TransitionCompleted                   // seats found
	TransitionExpired                     // travel date passed
	TransitionFailed                      // provider failure
)

func (t Transition) String() string {
	switch t {
	case TransitionChecked:
		return "checked"
	case TransitionCompleted:
		return "completed"
	case TransitionExpired:
		return "expired"
	case TransitionFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Lifecycle drives single watches from PENDING to a terminal status.
type Lifecycle struct {
	store    watch.Store
	notifier Notifier
	names    Names
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewLifecycle wires a Lifecycle. loc decides the calendar day used for
// expiry; notifier and names may be nil.
func NewLifecycle(store watch.Store, notifier Notifier, names Names, loc *time.Location, logger *slog.Logger) *Lifecycle {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		store:    store,
		notifier: notifier,
		names:    names,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the time source. Tests only.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

// Expired reports whether r's travel date is before today.
func (l *Lifecycle) Expired(r *watch.Request) bool {
	return r.Expired(l.now(), l.loc)
}

// Apply re-reads the watch and moves it according to its group's outcome.
// A watch that changed underneath (declined, deleted, completed by an
// earlier pass) is skipped without error.
func (l *Lifecycle) Apply(ctx context.Context, id string, out Outcome) (Transition, error) {
	cur, err := l.store.Get(ctx, id)
	if watch.IsNotFound(err) {
		return TransitionSkipped, nil
	}
	if err != nil {
		return TransitionSkipped, fmt.Errorf("refetch watch %s: %w", id, err)
	}
	if !cur.Pending() {
		return TransitionSkipped, nil
	}

	now := l.now().UTC()

	if cur.Expired(now, l.loc) {
		return l.terminate(ctx, cur, TransitionExpired, watch.StatusFailed, watch.ReasonDatePassed, now, out)
	}

	switch out.Kind {
	case OutcomeMatches:
		return l.terminate(ctx, cur, TransitionCompleted, watch.StatusCompleted, watch.ReasonSeatsFound, now, out)
	case OutcomeProviderFailure:
		return l.terminate(ctx, cur, TransitionFailed, watch.StatusFailed, watch.ReasonProviderFailure, now, out)
	}

	err = l.store.UpdateStatus(ctx, id, watch.Checked(now))
	if errors.Is(err, watch.ErrNotPending) || watch.IsNotFound(err) {
		return TransitionSkipped, nil
	}
	if err != nil {
		return TransitionSkipped, fmt.Errorf("record check %s: %w", id, err)
	}
	return TransitionChecked, nil
}

func (l *Lifecycle) terminate(ctx context.Context, cur *watch.Request, t Transition, status watch.Status, reason string, now time.Time, out Outcome) (Transition, error) {
	err := l.store.UpdateStatus(ctx, cur.ID, watch.Terminate(status, reason, now))
	if errors.Is(err, watch.ErrNotPending) || watch.IsNotFound(err) {
		l.logger.Info("Watch changed during pass, skipping", "watch_id", cur.ID)
		return TransitionSkipped, nil
	}
	if err != nil {
		return TransitionSkipped, fmt.Errorf("update watch %s: %w", cur.ID, err)
	}

	metrics.TransitionsTotal.WithLabelValues(string(status), reason).Inc()
	l.logger.Info("Watch transitioned",
		"watch_id", cur.ID, "user_id", cur.UserID, "status", status, "reason", reason)

	if l.notifier != nil {
		title, body, data := l.message(cur, t, out)
		l.notifier.Send(ctx, cur.UserID, title, body, data)
	}
	return t, nil
}

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

func (l *Lifecycle) message(r *watch.Request, t Transition, out Outcome) (title, body string, data map[string]string) {
	route := fmt.Sprintf("%s → %s", l.nameOf(r.FromStationID), l.nameOf(r.ToStationID))
	data = map[string]string{
		"watch_id":    r.ID,
		"from":        r.FromStationID,
		"to":          r.ToStationID,
		"travel_date": r.Day(),
	}

	switch t {
	case TransitionCompleted:
		data["type"] = "seats_found"
		title = "Seats available"
		body = fmt.Sprintf("%s on %s: seats are open.", route, r.Day())
		if len(out.Trains) > 0 {
			// seat details come from the representative's query
			cabin := out.Cabin
			if cabin == "" {
				cabin = r.CabinClass
			}
			tr := out.Trains[0]
			seats := tr.Available(cabin)
			body = fmt.Sprintf("%s on %s: %s %s departing %s has %d %s seat(s).",
				route, r.Day(), tr.TrainType, tr.TrainNumber, tr.DepartureTime,
				seats, cabinLabel(cabin))
			data["train_number"] = tr.TrainNumber
			data["train_type"] = tr.TrainType
			data["departure_time"] = tr.DepartureTime
			data["arrival_time"] = tr.ArrivalTime
			data["seats"] = strconv.Itoa(seats)
			data["cabin_class"] = string(cabin)
			data["matching_trains"] = strconv.Itoa(len(out.Trains))
		}
	case TransitionExpired:
		data["type"] = "watch_expired"
		title = "Watch ended"
		body = fmt.Sprintf("%s on %s: the travel date has passed, so we stopped watching.", route, r.Day())
	default:
		data["type"] = "watch_failed"
		title = "Watch stopped"
		body = fmt.Sprintf("%s on %s: we could not check availability. Please create the watch again.", route, r.Day())
	}
	return title, body, data
}

func (l *Lifecycle) nameOf(id string) string {
	if l.names == nil {
		return id
	}
	return l.names.NameOf(id)
}

func cabinLabel(c watch.CabinClass) string {
	if c == watch.CabinBusiness {
		return "business"
	}
	return "economy"
}
