package scheduling

import (
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
)

// slotGrid is the granularity placements are aligned to
const slotGrid = 15 * time.Minute

// DurationBounds describes how far a requested duration may be negotiated
type DurationBounds struct {
	Preferred time.Duration
	Min       time.Duration
	Max       time.Duration
}

// clampRequested keeps a requested duration inside the bounds
func (b DurationBounds) clampRequested(requested time.Duration) time.Duration {
	if b.Max > 0 && requested > b.Max {
		requested = b.Max
	}
	if b.Min > 0 && requested < b.Min {
		requested = b.Min
	}
	return requested
}

// FindSlot locates the best interval for a requested duration inside the given free
// intervals. With an ideal instant the search radiates outward from it, nearest
// interval first, otherwise the earliest interval with capacity wins. When the
// requested duration fits nowhere the duration shrinks toward bounds.Min, taking the
// largest fit instead of failing outright. Returns nil when not even bounds.Min fits.
func FindSlot(free []date.Timespan, requested time.Duration, bounds DurationBounds, ideal *time.Time) *date.Timespan {
	if len(free) == 0 || requested <= 0 {
		return nil
	}

	requested = bounds.clampRequested(requested)

	ordered := make([]date.Timespan, len(free))
	copy(ordered, free)
	if ideal != nil {
		date.SortByProximity(ordered, *ideal)
	}

	// First pass, full requested duration
	for _, interval := range ordered {
		if slot := placeInInterval(interval, requested, ideal); slot != nil {
			return slot
		}
	}

	// Shrink pass, largest duration that still respects the minimum
	minimum := bounds.Min
	if minimum <= 0 || minimum >= requested {
		return nil
	}

	for _, interval := range ordered {
		capacity := interval.Duration()
		if capacity < minimum {
			continue
		}

		shrunk := capacity - capacity%slotGrid
		if shrunk < minimum {
			shrunk = minimum
		}
		if shrunk > requested {
			shrunk = requested
		}

		if slot := placeInInterval(interval, shrunk, ideal); slot != nil {
			return slot
		}
	}

	return nil
}

// placeInInterval tries to fit a duration into one free interval. With an ideal
// instant inside the interval the slot starts there, sliding earlier only when the
// tail is too short.
func placeInInterval(interval date.Timespan, duration time.Duration, ideal *time.Time) *date.Timespan {
	if interval.Duration() < duration {
		return nil
	}

	start := interval.Start
	if ideal != nil {
		if interval.ContainsInstant(*ideal) {
			start = *ideal
			if interval.End.Sub(start) < duration {
				start = interval.End.Add(-duration)
			}
		} else if !interval.Start.After(*ideal) {
			// Interval lies before the ideal instant, end-align to stay closest
			start = interval.End.Add(-duration)
		}
	}

	start = alignToGrid(start, interval, duration)

	return &date.Timespan{Start: start, End: start.Add(duration)}
}

// alignToGrid rounds a start up to the next grid point when the slot still fits,
// otherwise the unaligned start stands
func alignToGrid(start time.Time, interval date.Timespan, duration time.Duration) time.Time {
	down := start.Truncate(slotGrid)
	up := down
	if up.Before(start) {
		up = up.Add(slotGrid)
	}

	if !up.Before(interval.Start) && interval.End.Sub(up) >= duration {
		return up
	}
	if !down.Before(interval.Start) && interval.End.Sub(down) >= duration {
		return down
	}

	return start
}
