// Package watch owns the ticket-watch document: its model, the invariants a
// user's set of watches must satisfy, the persistent store, and the
// user-facing operations (create, decline, delete, list).
//
// A watch starts PENDING and is moved to a terminal state either by the
// monitor (automatic) or by the owning user (decline). Terminal watches may
// then be soft-deleted. Nothing is ever hard-deleted.
package watch

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// MaxActivePerUser bounds the open (active, non-deleted) watches per user.
	MaxActivePerUser = 2

	// DateLayout is the wire and storage format of a travel date.
	DateLayout = "2006-01-02"
	// ClockLayout is the format of departure window bounds.
	ClockLayout = "15:04"
)

// Status reasons written whenever a watch leaves PENDING.
const (
	ReasonUserDeclined    = "user declined"
	ReasonDatePassed      = "search date has passed"
	ReasonSeatsFound      = "seats found"
	ReasonProviderFailure = "search failed due to technical error"
)

// --------------------------------------------------------------------------
// Enums
// --------------------------------------------------------------------------

// Status is the lifecycle state of a watch.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is COMPLETED or FAILED.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CabinClass is the seat class a user is waiting for.
type CabinClass string

const (
	CabinEconomy  CabinClass = "ECONOMY"
	CabinBusiness CabinClass = "BUSINESS"
)

// Valid reports whether c is a known cabin class.
func (c CabinClass) Valid() bool {
	return c == CabinEconomy || c == CabinBusiness
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Window is a half-open departure clock range [Start, End) in HH:MM.
type Window struct {
	Start string
	End   string
}

// Contains reports whether the HH:MM clock value falls inside the window.
// Zero-padded HH:MM strings order lexicographically.
func (w Window) Contains(clock string) bool {
	return clock >= w.Start && clock < w.End
}

func (w Window) String() string {
	return w.Start + "-" + w.End
}

// Request is one persisted watch document.
type Request struct {
	ID              string
	UserID          string
	FromStationID   string
	ToStationID     string
	TravelDate      time.Time // midnight UTC; only the calendar day matters
	CabinClass      CabinClass
	DepartureWindow Window
	HighSpeedOnly   bool
	IsActive        bool
	Status          Status
	StatusReason    string
	LastCheckedAt   *time.Time
	DeletedAt       *time.Time
	CreatedAt       time.Time
}

// Day returns the travel date as YYYY-MM-DD.
func (r *Request) Day() string {
	return r.TravelDate.Format(DateLayout)
}

// Open reports whether the watch counts toward a user's limits.
func (r *Request) Open() bool {
	return r.IsActive && r.DeletedAt == nil
}

// Pending reports whether the monitor may still act on the watch.
func (r *Request) Pending() bool {
	return r.Status == StatusPending && r.Open()
}

// Expired reports whether the travel date is strictly before the calendar
// day of now in loc.
func (r *Request) Expired(now time.Time, loc *time.Location) bool {
	return r.Day() < now.In(loc).Format(DateLayout)
}

// SameRoute reports whether r and o cover the same unordered station pair.
func (r *Request) SameRoute(o *Request) bool {
	return (r.FromStationID == o.FromStationID && r.ToStationID == o.ToStationID) ||
		(r.FromStationID == o.ToStationID && r.ToStationID == o.FromStationID)
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	c := *r
	if r.LastCheckedAt != nil {
		t := *r.LastCheckedAt
		c.LastCheckedAt = &t
	}
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// Summary returns a one-line description for logs.
func (r *Request) Summary() string {
	return fmt.Sprintf("watch=%s user=%s route=%s->%s date=%s cabin=%s window=%s status=%s",
		r.ID, r.UserID, r.FromStationID, r.ToStationID, r.Day(),
		r.CabinClass, r.DepartureWindow, r.Status)
}

// StatusUpdate is the partial update applied by UpdateStatus.
type StatusUpdate struct {
	IsActive      bool
	Status        Status
	StatusReason  string
	LastCheckedAt *time.Time
}

// Checked is the update that leaves a watch PENDING and records a probe.
func Checked(at time.Time) StatusUpdate {
	return StatusUpdate{IsActive: true, Status: StatusPending, LastCheckedAt: &at}
}

// Terminate is the update that moves a watch to a terminal status.
func Terminate(status Status, reason string, at time.Time) StatusUpdate {
	return StatusUpdate{IsActive: false, Status: status, StatusReason: reason, LastCheckedAt: &at}
}

// ListFilter narrows ListByUser. Empty Statuses means any status.
type ListFilter struct {
	Statuses       []Status
	IncludeDeleted bool
}

func (f ListFilter) match(r *Request) bool {
	if r.DeletedAt != nil && !f.IncludeDeleted {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}
