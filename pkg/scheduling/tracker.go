package scheduling

import (
	"sort"
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
)

// occupantKind classifies entries of the occupied tracker
type occupantKind string

const (
	occupantLocked occupantKind = "locked"
	occupantHabit  occupantKind = "habit"
	occupantTask   occupantKind = "task"
	occupantBreak  occupantKind = "break"
)

// occupant is a single reserved interval on the calendar during a run
type occupant struct {
	eventID        string
	span           date.Timespan
	kind           occupantKind
	priority       Priority
	deadline       *time.Time
	ownerID        string
	occurrenceDate string
	// flexible occupants have no fixed time wish and are preferred bump victims
	flexible bool
	// priorRun occupants came from storage, bumping them deletes instead of unplacing
	priorRun bool
}

// occupiedTracker keeps all reserved intervals of a run and answers conflict
// and bump-candidate queries against them
type occupiedTracker struct {
	occupants []occupant
}

func newOccupiedTracker() *occupiedTracker {
	return &occupiedTracker{}
}

func (t *occupiedTracker) add(o occupant) {
	t.occupants = append(t.occupants, o)
}

func (t *occupiedTracker) remove(eventID string) {
	for i, o := range t.occupants {
		if o.eventID == eventID {
			t.occupants = append(t.occupants[:i], t.occupants[i+1:]...)
			return
		}
	}
}

func (t *occupiedTracker) hasConflict(span date.Timespan) bool {
	for _, o := range t.occupants {
		if o.span.IntersectsWith(span) {
			return true
		}
	}
	return false
}

func (t *occupiedTracker) busyWithin(window date.Timespan) []date.Timespan {
	var busy []date.Timespan
	for _, o := range t.occupants {
		if o.span.IntersectsWith(window) {
			busy = append(busy, o.span)
		}
	}
	return busy
}

// bumpCandidates returns occupants inside the urgent window that may be evicted for
// a task with the given effective priority and deadline. Eviction is allowed for
// habit occupants of lower priority and for task occupants with a strictly later
// deadline. Locked, break and ongoing occupants are never candidates. Victims
// without a fixed time wish sort first, then earlier starts.
func (t *occupiedTracker) bumpCandidates(priority Priority, deadline time.Time, now time.Time) []occupant {
	window := date.Timespan{Start: now, End: deadline}

	var candidates []occupant
	for _, o := range t.occupants {
		if !o.span.IntersectsWith(window) {
			continue
		}
		if o.span.ContainsInstant(now) {
			continue
		}

		switch o.kind {
		case occupantHabit:
			if ComparePriority(priority, o.priority) < 0 {
				candidates = append(candidates, o)
			}
		case occupantTask:
			if o.deadline == nil || o.deadline.After(deadline) {
				candidates = append(candidates, o)
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].flexible != candidates[j].flexible {
			return candidates[i].flexible
		}
		return candidates[i].span.Start.Before(candidates[j].span.Start)
	})

	return candidates
}
