// Package monitor is the background engine that re-checks pending watches
// against the availability provider. A pass groups pending watches by route
// and date, probes each group once, and drives every member through its
// lifecycle. The Scheduler decides how often passes run.
package monitor

import (
	"fmt"

	"github.com/albapepper/seatwatch/internal/watch"
)

// Key identifies a group: watches sharing route and travel date.
type Key struct {
	From string
	To   string
	Date string
}

func (k Key) String() string {
	return fmt.Sprintf("%s->%s@%s", k.From, k.To, k.Date)
}

// Group is the ephemeral set of pending watches sharing a Key.
type Group struct {
	Key     Key
	Members []watch.Request
}

// Representative is the member whose preferences drive the shared probe.
func (g *Group) Representative() *watch.Request {
	return &g.Members[0]
}

// IDs returns the member IDs in order.
func (g *Group) IDs() []string {
	ids := make([]string, len(g.Members))
	for i := range g.Members {
		ids[i] = g.Members[i].ID
	}
	return ids
}

// KeyOf returns the group key for r. Direction matters: A->B and B->A are
// different searches.
func KeyOf(r *watch.Request) Key {
	return Key{From: r.FromStationID, To: r.ToStationID, Date: r.Day()}
}

// GroupPending partitions watches by Key. Groups come back in the order
// their first member appears in the input, and members keep input order.
func GroupPending(reqs []watch.Request) []Group {
	index := make(map[Key]int)
	var groups []Group
	for _, r := range reqs {
		k := KeyOf(&r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Members = append(groups[i].Members, r)
	}
	return groups
}
