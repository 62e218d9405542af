// Package provider defines the contract for live seat-availability lookups.
// Concrete adapters live in subpackages.
package provider

import (
	"context"
	"fmt"

	"github.com/albapepper/seatwatch/internal/watch"
)

// Query describes one availability search.
type Query struct {
	FromStationID string
	ToStationID   string
	Date          string // YYYY-MM-DD
	Window        watch.Window
	CabinClass    watch.CabinClass
	HighSpeedOnly bool
}

func (q Query) String() string {
	return fmt.Sprintf("%s->%s %s %s %s", q.FromStationID, q.ToStationID, q.Date, q.Window, q.CabinClass)
}

// Train is one candidate departure returned by a provider.
type Train struct {
	TrainNumber   string
	TrainType     string // e.g. "KTX", "SRT", "ITX"
	HighSpeed     bool
	DepartureTime string // HH:MM
	ArrivalTime   string // HH:MM
	Seats         map[watch.CabinClass]int
}

// Available returns the open seat count for cabin.
func (t Train) Available(cabin watch.CabinClass) int {
	return t.Seats[cabin]
}

// AvailabilityProvider searches a third-party reservation system. Search
// returns an error on transport or remote failure; an empty slice means no
// candidate trains.
type AvailabilityProvider interface {
	Search(ctx context.Context, q Query) ([]Train, error)
}

// Func adapts a plain function to AvailabilityProvider.
type Func func(ctx context.Context, q Query) ([]Train, error)

func (f Func) Search(ctx context.Context, q Query) ([]Train, error) { return f(ctx, q) }

// QueryFor builds the search for a watch's own preferences.
func QueryFor(r *watch.Request) Query {
	return Query{
		FromStationID: r.FromStationID,
		ToStationID:   r.ToStationID,
		Date:          r.Day(),
		Window:        r.DepartureWindow,
		CabinClass:    r.CabinClass,
		HighSpeedOnly: r.HighSpeedOnly,
	}
}
