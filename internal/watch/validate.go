package watch

import (
	"strings"
	"time"
)

// CreateInput is what a user submits to open a watch.
type CreateInput struct {
	FromStationID string
	ToStationID   string
	TravelDate    string // YYYY-MM-DD
	CabinClass    CabinClass
	Window        Window
	HighSpeedOnly bool
}

// ParseDate parses a YYYY-MM-DD travel date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, invalid("travel date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}

// ValidateWindow checks that both bounds are set, well-formed and ordered.
func ValidateWindow(w Window) error {
	if w.Start == "" || w.End == "" {
		return invalid("departure window needs both start and end")
	}
	start, err := time.Parse(ClockLayout, w.Start)
	if err != nil {
		return invalid("departure window start %q must be HH:MM", w.Start)
	}
	end, err := time.Parse(ClockLayout, w.End)
	if err != nil {
		return invalid("departure window end %q must be HH:MM", w.End)
	}
	if !start.Before(end) {
		return invalid("departure window start %s must be before end %s", w.Start, w.End)
	}
	return nil
}

// Validate checks the shape of a create request and returns the parsed
// travel date. today is the caller's current calendar day (YYYY-MM-DD).
func (in CreateInput) Validate(today string) (time.Time, error) {
	from := strings.TrimSpace(in.FromStationID)
	to := strings.TrimSpace(in.ToStationID)
	if from == "" || to == "" {
		return time.Time{}, invalid("departure and arrival stations are required")
	}
	if from == to {
		return time.Time{}, invalid("departure and arrival stations must differ")
	}
	if !in.CabinClass.Valid() {
		return time.Time{}, invalid("cabin class %q is not supported", in.CabinClass)
	}
	if err := ValidateWindow(in.Window); err != nil {
		return time.Time{}, err
	}
	date, err := ParseDate(in.TravelDate)
	if err != nil {
		return time.Time{}, err
	}
	if date.Format(DateLayout) < today {
		return time.Time{}, invalid("travel date %s has already passed", date.Format(DateLayout))
	}
	return date, nil
}

// CheckLimits enforces the per-user creation invariants against the user's
// existing watches: at most MaxActivePerUser open watches, and no two open
// watches on the same unordered station pair.
func CheckLimits(existing []Request, req *Request) error {
	open := 0
	for i := range existing {
		e := &existing[i]
		if e.UserID != req.UserID || !e.Open() {
			continue
		}
		if e.SameRoute(req) {
			return invalid("an active watch for %s-%s already exists", req.FromStationID, req.ToStationID)
		}
		open++
	}
	if open >= MaxActivePerUser {
		return invalid("at most %d active watches are allowed", MaxActivePerUser)
	}
	return nil
}
